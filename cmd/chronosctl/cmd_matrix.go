package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-chronos/internal/grid"
	"github.com/ryanbastic/go-chronos/internal/model"
)

func (a *app) matrixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "matrix",
		Aliases: []string{"matrices"},
		Short:   "Manage matrices",
	}
	cmd.AddCommand(a.matrixListCmd(), a.matrixCreateCmd(), a.matrixShowCmd(), a.matrixDeleteCmd())
	return cmd
}

func (a *app) matrixListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your matrices, newest first",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			matrices, err := a.api.AllMatrices(cmd.Context())
			if err != nil {
				return err
			}
			if len(matrices) == 0 {
				fmt.Fprintln(a.out, "no matrices yet")
				return nil
			}
			for _, m := range matrices {
				printMatrixLine(a, m)
			}
			return nil
		}),
	}
}

func printMatrixLine(a *app, m model.Matrix) {
	c := m.Config
	fmt.Fprintf(a.out, "%s  %-24s %s..%s %s-%s every %dm\n", m.ID, m.Name, c.StartDate, c.EndDate, c.StartTime, c.EndTime, c.Interval)
}

func (a *app) matrixCreateCmd() *cobra.Command {
	var req model.NewMatrix
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a matrix",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			req = req.Normalized()
			if err := req.Validate(); err != nil {
				return err
			}
			m, err := a.api.CreateMatrix(cmd.Context(), req)
			if err != nil {
				return err
			}
			printMatrixLine(a, *m)
			fmt.Fprintf(a.out, "%d cells\n", grid.TotalCells(m.Config))
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.StartDate, "start-date", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&req.EndDate, "end-date", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&req.StartTime, "start-time", "09:00", "start of the first slot, HH:mm")
	cmd.Flags().StringVar(&req.EndTime, "end-time", "17:00", "end of the day, HH:mm")
	cmd.Flags().IntVar(&req.Interval, "interval", 60, "slot length in minutes")
	_ = cmd.MarkFlagRequired("start-date")
	_ = cmd.MarkFlagRequired("end-date")
	return cmd
}

func (a *app) matrixShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <matrix-id>",
		Short: "Show a matrix and its fill statistics",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID("matrix", args[0])
			if err != nil {
				return err
			}
			m, err := a.api.GetMatrix(cmd.Context(), id)
			if err != nil {
				return err
			}
			v, err := a.loadView(cmd.Context(), id)
			if err != nil {
				return err
			}
			printMatrixLine(a, *m)
			layout := v.Layout()
			fmt.Fprintf(a.out, "%d dates x %d slots\n", layout.NumRows(), layout.NumColumns())
			printStats(a, v.Stats())
			return nil
		}),
	}
}

func (a *app) matrixDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <matrix-id>",
		Short: "Delete a matrix with its cells and categories",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID("matrix", args[0])
			if err != nil {
				return err
			}
			if err := a.api.DeleteMatrix(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", id)
			return nil
		}),
	}
}
