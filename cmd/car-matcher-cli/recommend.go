package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/recommend"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/tags"
)

// newRecommendCmd creates the recommend subcommand.
func newRecommendCmd(a *app) *cobra.Command {
	var (
		budget     float64
		body       string
		fuel       string
		usage      []string
		priorities []string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank catalog cars for a buyer profile",
		Long: `Recommend scores every catalog car against the given budget, body style,
fuel type, usage and priorities and prints the ranked list with a summary line.

When no car reaches the minimum score, cars inside the widened budget band are
returned; failing that, the highest scoring cars.`,
		Example: `  car-matcher-cli recommend --budget 1100000 --body SUV --fuel Elektrik --usage "Şehir içi"
  car-matcher-cli recommend --body Sedan --priority "Düşük tüketim" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			criteria := catalog.Criteria{
				Body:       body,
				Fuel:       fuel,
				Usage:      usage,
				Priorities: priorities,
			}
			if cmd.Flags().Changed("budget") {
				criteria.Budget = catalog.Budget(budget)
			}
			if err := criteria.Validate(); err != nil {
				return err
			}
			for _, t := range criteria.WantedTags() {
				if !tags.IsCanonical(t) {
					a.ui.Warning("%q is not in the canonical vocabulary and may not match; see 'tags vocabulary'", t)
				}
			}

			svc, closeAll, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			stop := a.ui.Spinner("Matching cars...")
			result, err := svc.Recommend(ctx, criteria)
			stop()
			if err != nil {
				return err
			}

			if a.outputJSON {
				return a.ui.JSON(result)
			}
			a.printResult(result)
			return nil
		},
	}

	cmd.Flags().Float64Var(&budget, "budget", 0, "budget in TRY")
	cmd.Flags().StringVar(&body, "body", "", "body style (SUV, Sedan, Hatchback, ...)")
	cmd.Flags().StringVar(&fuel, "fuel", "", "fuel type (Benzin, Dizel, Hibrit, Elektrik, ...)")
	cmd.Flags().StringSliceVar(&usage, "usage", nil, "usage tags (repeatable)")
	cmd.Flags().StringSliceVar(&priorities, "priority", nil, "priority tags (repeatable)")
	return cmd
}

func (a *app) printResult(result *recommend.Result) {
	a.ui.Section("Recommendations")
	a.ui.Info("%s", result.Summary)

	switch result.Tier {
	case matching.TierBudget:
		a.ui.Warning("No car reached the minimum score; showing cars in the widened budget band")
	case matching.TierTop:
		a.ui.Warning("No close match; showing the highest scoring cars")
	}

	if len(result.Cars) == 0 {
		a.ui.Warning("Catalog is empty")
		return
	}

	rows := make([][]string, len(result.Cars))
	for i, car := range result.Cars {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			car.DisplayName(),
			car.Body,
			car.Fuel,
			FormatPrice(car.PriceTRY),
			strconv.Itoa(car.MatchScore),
			matchedDimensions(car.MatchDetails),
		}
	}
	fmt.Fprintln(a.ui.out)
	a.ui.Table([]string{"#", "Car", "Body", "Fuel", "Price", "Score", "Matched"}, rows)

	cached := "no"
	if result.Cached {
		cached = "yes"
	}
	fmt.Fprintln(a.ui.out)
	a.ui.KeyValue("Tier", result.Tier)
	a.ui.KeyValue("Catalog version", result.CatalogVersion)
	a.ui.KeyValue("Cached", cached)
}

func matchedDimensions(d catalog.MatchDetails) string {
	var parts []string
	if d.Budget {
		parts = append(parts, "budget")
	}
	if d.Body {
		parts = append(parts, "body")
	}
	if d.Fuel {
		parts = append(parts, "fuel")
	}
	if d.Tags > 0 {
		parts = append(parts, fmt.Sprintf("tags×%d", d.Tags))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func joinTags(t []string) string {
	if len(t) == 0 {
		return "-"
	}
	return strings.Join(t, ", ")
}
