package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/storage"
)

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the catalog schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if a.outputJSON {
				return a.ui.JSON(map[string]string{
					"status": "migrated",
					"driver": a.cfg.Database.Driver,
				})
			}
			a.ui.Success("Schema up to date (%s)", a.cfg.Database.Driver)
			return nil
		},
	}
}

// ImportResultDTO is the --json output of import.
type ImportResultDTO struct {
	File           string `json:"file"`
	Imported       int    `json:"imported"`
	Total          int    `json:"total"`
	CatalogVersion string `json:"catalogVersion"`
	DurationMs     int64  `json:"durationMs"`
}

// newImportCmd creates the import subcommand.
func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON or YAML catalog file",
		Long: `Import loads a catalog file, normalizes every entry's tags to the
canonical vocabulary and upserts the entries by ID. Entries without an ID get
one generated. Running services sharing the Redis cache reload automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			start := time.Now()
			entries, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}

			svc, closeAll, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			a.ui.Step("Importing %d cars from %s", len(entries), args[0])
			var bar *mpb.Bar
			if len(entries) > 0 {
				bar = a.ui.ProgressBar("cars", int64(len(entries)))
			}

			imported, err := svc.Import(ctx, entries, func(done, total int) {
				if bar != nil {
					bar.SetCurrent(int64(done))
				}
			})
			if bar != nil && err != nil {
				bar.Abort(false)
			}
			a.ui.Close()
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}

			a.logger.Info().
				Str("file", args[0]).
				Int("imported", imported).
				Str("version", svc.Version()).
				Msg("Catalog imported")

			if a.outputJSON {
				return a.ui.JSON(ImportResultDTO{
					File:           args[0],
					Imported:       imported,
					Total:          len(entries),
					CatalogVersion: svc.Version(),
					DurationMs:     time.Since(start).Milliseconds(),
				})
			}

			a.ui.Success("Imported %d cars in %s", imported, FormatDuration(time.Since(start)))
			a.ui.KeyValue("Catalog size", svc.Size())
			a.ui.KeyValue("Catalog version", svc.Version())
			return nil
		},
	}
	return cmd
}

// newCarsCmd creates the cars subcommand.
func newCarsCmd(a *app) *cobra.Command {
	var q storage.CarQuery

	cmd := &cobra.Command{
		Use:   "cars",
		Short: "List stored cars in catalog order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			if q.Limit < 0 || q.Offset < 0 {
				return fmt.Errorf("limit and offset must not be negative")
			}

			svc, closeAll, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			cars, err := svc.Cars(ctx, q)
			if err != nil {
				return err
			}
			if cars == nil {
				cars = []*storage.CarRecord{}
			}

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{"cars": cars, "count": len(cars)})
			}
			if len(cars) == 0 {
				a.ui.Warning("No cars found")
				return nil
			}

			rows := make([][]string, len(cars))
			for i, car := range cars {
				rows[i] = []string{
					car.ID,
					car.DisplayName(),
					car.Body,
					car.Fuel,
					FormatPrice(car.PriceTRY),
					joinTags(car.Tags),
				}
			}
			a.ui.Table([]string{"ID", "Car", "Body", "Fuel", "Price", "Tags"}, rows)
			return nil
		},
	}

	cmd.AddCommand(newCarsDeleteCmd(a))

	cmd.Flags().StringVar(&q.Body, "body", "", "filter by body style")
	cmd.Flags().StringVar(&q.Fuel, "fuel", "", "filter by fuel type")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum number of cars (0 = all)")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "number of cars to skip")
	return cmd
}

func newCarsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a car from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			svc, closeAll, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			if err := svc.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete %q: %w", args[0], err)
			}

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{
					"deleted":        args[0],
					"catalogVersion": svc.Version(),
				})
			}
			a.ui.Success("Deleted %s", args[0])
			a.ui.KeyValue("Catalog size", svc.Size())
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.outputJSON {
				return a.ui.JSON(map[string]string{
					"version": version,
					"commit":  commit,
					"go":      runtime.Version(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "car-matcher-cli v%s (%s)\n", version, commit)
			return nil
		},
	}
}
