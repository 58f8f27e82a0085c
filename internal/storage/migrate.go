package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/inkpad-app/inkpad/internal/apperrors"
	"github.com/inkpad-app/inkpad/internal/hostsvc"
	"github.com/inkpad-app/inkpad/internal/kv"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/models"
)

// MigrationState is the coordinator's three-state machine.
type MigrationState int32

const (
	MigrationNotChecked MigrationState = iota
	MigrationMigrating
	MigrationDone
)

// String implements fmt.Stringer.
func (s MigrationState) String() string {
	switch s {
	case MigrationNotChecked:
		return "not_checked"
	case MigrationMigrating:
		return "migrating"
	case MigrationDone:
		return "done"
	default:
		return "unknown"
	}
}

// MigrationCoordinator moves all four entity kinds from the key-value
// store's legacy keys into the host file service, exactly once.
//
// The legacy keys are erased only after the copy has been confirmed, so
// a failed run leaves everything in place for an idempotent retry on the
// next startup. Running with no legacy data, or after a completed
// migration, is a no-op.
type MigrationCoordinator struct {
	store kv.Store
	svc   hostsvc.FileService
	log   zerolog.Logger

	mu       sync.Mutex
	state    MigrationState
	migrated bool
}

// NewMigrationCoordinator creates a coordinator in the NotChecked state.
func NewMigrationCoordinator(store kv.Store, svc hostsvc.FileService) *MigrationCoordinator {
	return &MigrationCoordinator{
		store: store,
		svc:   svc,
		log:   logging.With("storage.migration"),
		state: MigrationNotChecked,
	}
}

// State returns the current machine state.
func (m *MigrationCoordinator) State() MigrationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Migrated reports whether a completed run actually moved legacy data,
// as opposed to finding nothing to do.
func (m *MigrationCoordinator) Migrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.migrated
}

// Run performs the one-shot migration. Safe to call repeatedly: once the
// state reaches Done every further call returns immediately; after a
// failure the legacy keys are untouched and the next call retries the
// copy.
func (m *MigrationCoordinator) Run(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == MigrationDone {
		return nil
	}

	payload, err := m.readLegacy()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrMigrationFailed, "failed to read legacy data", err)
	}
	if payload.Empty() {
		m.state = MigrationDone
		m.log.Debug().Msg("no legacy data, migration is a no-op")
		return nil
	}

	m.state = MigrationMigrating
	m.log.Info().Msg("legacy data detected, migrating to host file service")

	res, err := m.svc.Migrate(ctx, payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrMigrationFailed, res.Message, err)
	}
	if !res.Success {
		return apperrors.New(apperrors.ErrMigrationFailed, res.Message)
	}

	if err := m.confirm(ctx, payload); err != nil {
		return err
	}

	// Only a confirmed copy may erase the legacy keys; otherwise a
	// retry on next startup would find nothing to migrate.
	for _, kind := range Kinds {
		if err := m.store.RemoveItem(kind.LegacyKey()); err != nil {
			return apperrors.Wrap(apperrors.ErrMigrationFailed,
				fmt.Sprintf("migrated but failed to erase legacy key for %s", kind), err)
		}
	}

	m.state = MigrationDone
	m.migrated = true
	m.log.Info().Str("result", res.Message).Msg("migration complete, legacy keys erased")
	return nil
}

// readLegacy collects the four legacy blobs as stored.
func (m *MigrationCoordinator) readLegacy() (hostsvc.MigrationPayload, error) {
	var payload hostsvc.MigrationPayload
	var err error

	if payload.Documents, err = m.store.GetItem(KindDocuments.LegacyKey()); err != nil {
		return payload, err
	}
	if payload.Collections, err = m.store.GetItem(KindCollections.LegacyKey()); err != nil {
		return payload, err
	}
	if payload.Preferences, err = m.store.GetItem(KindPreferences.LegacyKey()); err != nil {
		return payload, err
	}
	if payload.LabelColors, err = m.store.GetItem(KindLabelColors.LegacyKey()); err != nil {
		return payload, err
	}
	return payload, nil
}

// confirm reads every migrated document back from the service before the
// legacy keys may be erased.
func (m *MigrationCoordinator) confirm(ctx context.Context, payload hostsvc.MigrationPayload) error {
	if len(payload.Documents) == 0 {
		return nil
	}

	var docs []*models.Document
	if err := json.Unmarshal(payload.Documents, &docs); err != nil {
		return apperrors.Wrap(apperrors.ErrMigrationFailed,
			"legacy documents blob unparseable during confirmation", err)
	}

	for _, doc := range docs {
		got, err := m.svc.LoadDocument(ctx, doc.ID.String())
		if err != nil {
			return apperrors.Wrap(apperrors.ErrMigrationFailed,
				fmt.Sprintf("failed to confirm document %s", doc.ID), err)
		}
		if got == nil {
			return apperrors.Newf(apperrors.ErrMigrationFailed,
				"document %s missing after migration", doc.ID)
		}
	}
	return nil
}
