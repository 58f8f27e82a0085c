// Package main provides the offline command line tool: inspect and
// snapshot a data directory without running the desktop server.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/inkpad-app/inkpad/internal/config"
	"github.com/inkpad-app/inkpad/internal/hostsvc"
	"github.com/inkpad-app/inkpad/internal/kv"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/models"
	"github.com/inkpad-app/inkpad/internal/storage"
)

// Version is set at build time.
var Version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, `inkpad v%s

Usage:
  inkpad [flags] <command>

Commands:
  list            list all documents
  trash           list trashed documents
  export <file>   write a checksummed snapshot
  import <file>   restore a snapshot
  status          show backend and migration state

Flags:
`, Version)
	pflag.PrintDefaults()
}

func main() {
	var (
		configPath = pflag.String("config", "", "path to the YAML configuration file")
		dataDir    = pflag.String("data-dir", "", "data directory override")
		logLevel   = pflag.String("log-level", "warn", "log level")
	)
	pflag.Usage = usage
	pflag.Parse()

	logging.Init(os.Stderr, *logLevel)
	log := logging.With("cli")

	args := pflag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	if err := run(cfg, args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func run(cfg *config.Config, args []string) error {
	ctx := context.Background()

	kvs, err := kv.Open(cfg.DataDir, cfg.LocalQuotaBytes)
	if err != nil {
		return fmt.Errorf("failed to open key-value store: %w", err)
	}

	var svc hostsvc.FileService
	if cfg.HostFiles {
		if disk, err := hostsvc.NewDiskService(cfg.HostFilesDir()); err == nil {
			svc = disk
		}
	}

	store := storage.New(kvs, svc, storage.Options{WriteTimeout: cfg.WriteTimeout()})
	if err := store.Initialize(ctx); err != nil {
		return err
	}
	defer store.Close(ctx)

	switch cmd := args[0]; cmd {
	case "list":
		return printDocuments(store.Documents())
	case "trash":
		return printDocuments(store.TrashedDocuments())
	case "status":
		fmt.Printf("backend:   %s\nmigration: %s\n", store.BackendName(), store.MigrationState())
		return nil
	case "export":
		if len(args) < 2 {
			return fmt.Errorf("export requires a target file")
		}
		data, err := store.Export(ctx)
		if err != nil {
			return err
		}
		return os.WriteFile(args[1], data, 0600)
	case "import":
		if len(args) < 2 {
			return fmt.Errorf("import requires a source file")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		return store.Import(ctx, data)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printDocuments(docs []*models.Document) error {
	if len(docs) == 0 {
		fmt.Println("no documents")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", doc.ID, title,
			time.Unix(doc.UpdatedAt, 0).Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
