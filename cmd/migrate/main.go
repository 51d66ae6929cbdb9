package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"intakegate/domain/core"
	"intakegate/internal/config"
	"intakegate/internal/container"
	"intakegate/ports"
)

func main() {
	_ = godotenv.Load()

	var configFile string
	rootCmd := &cobra.Command{
		Use:          "intakegate-migrate",
		Short:        "Prepare the run store and import saved runs",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")

	open := func(ctx context.Context) (*container.Container, error) {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Driver == "none" {
			return nil, fmt.Errorf("database.driver is none; set INTAKE_DATABASE_DRIVER and INTAKE_DATABASE_URL")
		}
		// container.New applies the schema for either driver
		return container.New(ctx, cfg, nil)
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create or update the run store schema",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := open(cmd.Context())
				if err != nil {
					return err
				}
				defer c.Close()
				log.Printf("Schema is current for %s store", c.Config.Database.Driver)
				return nil
			},
		},
		&cobra.Command{
			Use:   "import [dir]",
			Short: "Import run JSON files written by 'intakegate run --out'",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := open(cmd.Context())
				if err != nil {
					return err
				}
				defer c.Close()
				migrated, skipped, err := importRuns(cmd.Context(), c.Runs, args[0])
				if err != nil {
					return err
				}
				log.Printf("Import complete: %d imported, %d skipped", migrated, skipped)
				return nil
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// importRuns saves every readable run file under dir. Files that fail to load or save are
// logged and skipped.
func importRuns(ctx context.Context, runs ports.RunRepository, dir string) (int, int, error) {
	files, err := findRunFiles(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to find run files: %w", err)
	}
	log.Printf("Found %d run files to import", len(files))

	migrated, skipped := 0, 0
	for _, file := range files {
		run, err := loadRunFromFile(file)
		if err != nil {
			log.Printf("Failed to load run from %s: %v", file, err)
			skipped++
			continue
		}
		if err := runs.Save(ctx, run); err != nil {
			log.Printf("Failed to save run %s: %v", run.ID, err)
			skipped++
			continue
		}
		migrated++
		log.Printf("Imported run %s from %s", run.ID, filepath.Base(file))
	}
	return migrated, skipped, nil
}

func findRunFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func loadRunFromFile(path string) (*ports.StoredRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var run ports.StoredRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	if _, err := core.ParseRunID(run.ID.String()); err != nil {
		return nil, err
	}
	if run.Report.Verdict == "" {
		return nil, fmt.Errorf("no report verdict")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = run.Report.GeneratedAt
	}
	return &run, nil
}
