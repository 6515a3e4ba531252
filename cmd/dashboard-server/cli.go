package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/clinic/dashboard/internal/platform/dates"
)

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Read aggregated patient records",
	}

	// patients list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every patient with their latest appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")

			ctx := context.Background()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return writeJSON(cmd.OutOrStdout(), a.service.GetAll(ctx, refresh))
		},
	}
	listCmd.Flags().Bool("refresh", false, "Bypass the cache")
	cmd.AddCommand(listCmd)

	// patients get
	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rec := a.service.GetByID(ctx, args[0])
			if rec == nil {
				return fmt.Errorf("patient %s not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.AddCommand(getCmd)

	return cmd
}

func datesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dates",
		Short: "Date normalization helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "normalize <value>",
		Short: "Show storage and display forms, birth date validity and age",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), dates.Normalize(args[0]))
		},
	})
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
