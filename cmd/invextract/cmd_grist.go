package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"invextract/internal/config"
	"invextract/internal/grist"
)

var (
	gristTable  string
	gristField  string
	gristOutput string
)

// gristCmd groups document inspection commands.
var gristCmd = &cobra.Command{
	Use:   "grist",
	Short: "Inspect the configured Grist document",
}

var gristTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of the document",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := gristClientFromConfig()
		if err != nil {
			return err
		}
		tables, err := client.Tables(cmd.Context())
		if err != nil {
			return err
		}
		for _, tbl := range tables {
			fmt.Println(tbl.ID)
		}
		return nil
	},
}

var gristColumnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the columns of a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := gristClientFromConfig()
		if err != nil {
			return err
		}
		table := gristTable
		if table == "" {
			table = cfg.Grist.TableID
		}
		if table == "" {
			return fmt.Errorf("no table given: use --table or set grist.table_id")
		}
		columns, err := client.Columns(cmd.Context(), table)
		if err != nil {
			return err
		}
		for _, col := range columns {
			fmt.Println(col.ID)
		}
		return nil
	},
}

// gristUniqueCmd extracts the distinct values of one field, one per
// line, for building lookup lists from uploaded data.
var gristUniqueCmd = &cobra.Command{
	Use:   "unique",
	Short: "Write the unique values of a table field to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gristField == "" {
			return fmt.Errorf("--field is required")
		}
		client, cfg, err := gristClientFromConfig()
		if err != nil {
			return err
		}
		table := gristTable
		if table == "" {
			table = cfg.Grist.TableID
		}
		if table == "" {
			return fmt.Errorf("no table given: use --table or set grist.table_id")
		}

		values, err := client.UniqueValues(cmd.Context(), table, gristField)
		if err != nil {
			return err
		}

		out := strings.Join(values, "\n")
		if len(values) > 0 {
			out += "\n"
		}
		if err := os.WriteFile(gristOutput, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Printf("Saved %d unique values to %s\n", len(values), gristOutput)
		return nil
	},
}

func gristClientFromConfig() (*grist.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateGrist(); err != nil {
		// Table id is optional here; only connection settings matter.
		if cfg.Grist.APIKey == "" || cfg.Grist.DocID == "" {
			return nil, nil, err
		}
	}
	client, err := newGristClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func init() {
	gristCmd.AddCommand(gristTablesCmd)
	gristCmd.AddCommand(gristColumnsCmd)
	gristCmd.AddCommand(gristUniqueCmd)

	gristCmd.PersistentFlags().StringVarP(&gristTable, "table", "t", "", "table id (defaults to grist.table_id)")
	gristUniqueCmd.Flags().StringVarP(&gristField, "field", "f", "", "field to extract unique values from")
	gristUniqueCmd.Flags().StringVarP(&gristOutput, "output", "o", "unique_values.csv", "output file, one value per line")
}
