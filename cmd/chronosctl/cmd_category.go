package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-chronos/internal/model"
)

func (a *app) categoryCmd() *cobra.Command {
	var matrixRaw string
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage the categories of a matrix",
	}
	cmd.PersistentFlags().StringVar(&matrixRaw, "matrix", "", "matrix id")
	_ = cmd.MarkPersistentFlagRequired("matrix")

	var name, color string
	nameColorFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&name, "name", "", "category name")
		c.Flags().StringVar(&color, "color", "", "hex color, e.g. #ff8800")
		_ = c.MarkFlagRequired("name")
		_ = c.MarkFlagRequired("color")
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			cats, err := a.api.ListCategories(cmd.Context(), matrixID)
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Fprintln(a.out, "no categories yet")
				return nil
			}
			for _, c := range cats {
				printCategory(a, c)
			}
			return nil
		}),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Add a category",
		RunE: a.authed(func(cmd *cobra.Command, _ []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			c, err := a.api.CreateCategory(cmd.Context(), matrixID, name, color)
			if err != nil {
				return err
			}
			printCategory(a, *c)
			return nil
		}),
	}
	nameColorFlags(create)

	update := &cobra.Command{
		Use:   "update <category-id>",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			id, err := parseID("category", args[0])
			if err != nil {
				return err
			}
			c, err := a.api.UpdateCategory(cmd.Context(), matrixID, id, name, color)
			if err != nil {
				return err
			}
			printCategory(a, *c)
			return nil
		}),
	}
	nameColorFlags(update)

	del := &cobra.Command{
		Use:   "delete <category-id>",
		Short: "Remove a category; painted cells keep their color",
		Args:  cobra.ExactArgs(1),
		RunE: a.authed(func(cmd *cobra.Command, args []string) error {
			matrixID, err := parseID("matrix", matrixRaw)
			if err != nil {
				return err
			}
			id, err := parseID("category", args[0])
			if err != nil {
				return err
			}
			if err := a.api.DeleteCategory(cmd.Context(), matrixID, id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", id)
			return nil
		}),
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func printCategory(a *app, c model.Category) {
	fmt.Fprintf(a.out, "%s  %-8s %s\n", c.ID, c.Color, c.Name)
}
