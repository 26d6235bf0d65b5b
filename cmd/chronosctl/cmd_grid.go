package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-chronos/internal/export"
	"github.com/ryanbastic/go-chronos/internal/grid"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/tui"
	"github.com/ryanbastic/go-chronos/internal/view"
)

func (a *app) loadView(ctx context.Context, matrixID uuid.UUID) (*view.View, error) {
	return view.Load(ctx, a.api, matrixID)
}

// findCategory resolves a category by id or, failing that, by name.
func findCategory(cats []model.Category, ref string) (model.Category, bool) {
	if id, err := uuid.Parse(ref); err == nil {
		for _, c := range cats {
			if c.ID == id {
				return c, true
			}
		}
		return model.Category{}, false
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return model.Category{}, false
}

func (a *app) paintCmd() *cobra.Command {
	var matrixRaw, categoryRef string
	var indexes []int
	cmd := &cobra.Command{
		Use:   "paint",
		Short: "Toggle cells with a category and save",
		Long: `Toggle the given cell indexes with a category, then save.

Indexes count row by row: date row times slots per day plus slot column.
Painting a cell that already shows the category color reverts it.`,
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			v, err := a.loadView(cmd.Context(), matrixID)
			if err != nil {
				return err
			}
			cat, ok := findCategory(v.Categories(), categoryRef)
			if !ok {
				return fmt.Errorf("%w: %s", view.ErrUnknownCategory, categoryRef)
			}
			if err := v.Select(cat.ID); err != nil {
				return err
			}
			for _, idx := range indexes {
				if !v.Paint(idx) {
					return fmt.Errorf("index %d is outside the matrix (0..%d)", idx, v.Layout().TotalCells()-1)
				}
			}
			n, err := v.Save(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %d cells\n", n)
			printStats(a, v.Stats())
			return nil
		}),
	}
	cmd.Flags().StringVar(&matrixRaw, "matrix", "", "matrix id")
	cmd.Flags().StringVar(&categoryRef, "category", "", "category id or name")
	cmd.Flags().IntSliceVar(&indexes, "index", nil, "cell index, repeatable")
	_ = cmd.MarkFlagRequired("matrix")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var matrixRaw string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show fill statistics of a matrix",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			v, err := a.loadView(cmd.Context(), matrixID)
			if err != nil {
				return err
			}
			printStats(a, v.Stats())
			return nil
		}),
	}
	cmd.Flags().StringVar(&matrixRaw, "matrix", "", "matrix id")
	_ = cmd.MarkFlagRequired("matrix")
	return cmd
}

func printStats(a *app, s grid.Stats) {
	fmt.Fprintf(a.out, "filled %d of %d cells (%d%%), %d remaining\n", s.FilledCount, s.TotalCells, s.Percentage, s.RemainingCount)
	if s.Top != nil {
		fmt.Fprintf(a.out, "top category: %s\n", s.Top.Name)
	}
	for _, c := range s.Categories {
		fmt.Fprintf(a.out, "  %-24s %-8s %d\n", c.Name, c.Color, c.Count)
	}
}

func (a *app) exportCmd() *cobra.Command {
	var matrixRaw, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a matrix to an XLSX workbook",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			m, err := a.api.GetMatrix(cmd.Context(), matrixID)
			if err != nil {
				return err
			}
			v, err := a.loadView(cmd.Context(), matrixID)
			if err != nil {
				return err
			}
			if out == "" {
				out = m.ID.String() + ".xlsx"
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.WriteXLSX(f, m.Name, v.Layout(), v.Rendered(), v.Categories()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(a.out, "wrote %s\n", out)
			return nil
		}),
	}
	cmd.Flags().StringVar(&matrixRaw, "matrix", "", "matrix id")
	cmd.Flags().StringVar(&out, "out", "", "output file (default <matrix-id>.xlsx)")
	_ = cmd.MarkFlagRequired("matrix")
	return cmd
}

func (a *app) gridCmd() *cobra.Command {
	var matrixRaw string
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Paint a matrix interactively",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			m, err := a.api.GetMatrix(cmd.Context(), matrixID)
			if err != nil {
				return err
			}
			v, err := a.loadView(cmd.Context(), matrixID)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), v, m.Name)
		}),
	}
	cmd.Flags().StringVar(&matrixRaw, "matrix", "", "matrix id")
	_ = cmd.MarkFlagRequired("matrix")
	return cmd
}
