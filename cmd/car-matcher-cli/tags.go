package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/matching"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/tags"
)

// newTagsCmd creates the tags command group.
func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect the canonical tag vocabulary",
	}
	cmd.AddCommand(newTagsNormalizeCmd(a))
	cmd.AddCommand(newTagsSuggestCmd(a))
	cmd.AddCommand(newTagsVocabularyCmd(a))
	return cmd
}

// TagMappingDTO shows how one free-form tag maps to canonical tags.
type TagMappingDTO struct {
	Input     string   `json:"input"`
	Canonical []string `json:"canonical"`
}

func newTagsNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <tag>...",
		Short: "Map free-form tags to canonical tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings := make([]TagMappingDTO, len(args))
			for i, t := range args {
				mappings[i] = TagMappingDTO{Input: t, Canonical: tags.MapTag(t)}
			}
			normalized := tags.NormalizeCarTags(args)

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{
					"tags":     normalized,
					"mappings": mappings,
				})
			}

			rows := make([][]string, len(mappings))
			for i, m := range mappings {
				rows[i] = []string{m.Input, joinTags(m.Canonical)}
			}
			a.ui.Table([]string{"Input", "Canonical"}, rows)
			a.ui.KeyValue("Normalized", joinTags(normalized))
			return nil
		},
	}
}

func newTagsSuggestCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Derive canonical tags from a stored car's attributes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			svc, closeAll, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			car, err := svc.Car(ctx, id)
			if err != nil {
				return fmt.Errorf("car %q: %w", id, err)
			}
			suggested := tags.SuggestTagsFromCarData(car.Entry)

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{
					"carId": car.ID,
					"tags":  suggested,
				})
			}
			a.ui.KeyValue("Car", car.DisplayName())
			a.ui.KeyValue("Current tags", joinTags(car.Tags))
			a.ui.KeyValue("Suggested tags", joinTags(suggested))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "car ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newTagsVocabularyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "List the canonical usage and priority tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			usage, priorities := tags.UsageTags(), tags.PriorityTags()
			if a.outputJSON {
				return a.ui.JSON(map[string][]string{
					"usage":      usage,
					"priorities": priorities,
				})
			}

			a.ui.Section("Usage")
			for _, t := range usage {
				fmt.Fprintf(a.ui.out, "  • %s\n", t)
			}
			a.ui.Section("Priorities")
			for _, t := range priorities {
				fmt.Fprintf(a.ui.out, "  • %s\n", t)
			}
			return nil
		},
	}
}

// newBandsCmd creates the bands subcommand.
func newBandsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bands [budget]",
		Short: "Show budget bands, or the band a budget falls in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				bands := matching.BudgetBands()
				if a.outputJSON {
					return a.ui.JSON(map[string]interface{}{"bands": bands})
				}
				rows := make([][]string, len(bands))
				for i, b := range bands {
					rows[i] = []string{b.Name, FormatPrice(b.Min), FormatPrice(b.Max)}
				}
				a.ui.Table([]string{"Band", "Min", "Max"}, rows)
				return nil
			}

			budget, err := strconv.ParseFloat(args[0], 64)
			if err != nil || math.IsNaN(budget) || math.IsInf(budget, 0) || budget < 0 {
				return fmt.Errorf("invalid budget %q", args[0])
			}
			band := matching.RoundBudgetToRange(budget)
			expanded := band.Expanded()

			if a.outputJSON {
				return a.ui.JSON(map[string]interface{}{
					"budget":   budget,
					"band":     band,
					"expanded": expanded,
				})
			}
			a.ui.KeyValue("Budget", FormatPrice(budget))
			a.ui.KeyValue("Band", fmt.Sprintf("%s (%s - %s)", band.Name, FormatPrice(band.Min), FormatPrice(band.Max)))
			a.ui.KeyValue("Fallback band", fmt.Sprintf("%s - %s", FormatPrice(expanded.Min), FormatPrice(expanded.Max)))
			return nil
		},
	}
}
