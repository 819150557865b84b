package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/db"
	"github.com/lucasew/dircache/internal/errutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage the table catalog",
}

var tableAddCmd = &cobra.Command{
	Use:   "add <schema.table> <location>",
	Short: "Register a table or change its location",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := dircache.ParseSchemaTableName(args[0])
		if err != nil {
			return err
		}
		return withCatalog(func(catalog *db.DB) error {
			return catalog.PutTable(cmd.Context(), dircache.Table{
				SchemaName: name.Schema,
				TableName:  name.Table,
				Location:   args[1],
			})
		})
	},
}

var tablePartitionCmd = &cobra.Command{
	Use:   "partition <schema.table> <name> <location>",
	Short: "Register a partition of a table",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := dircache.ParseSchemaTableName(args[0])
		if err != nil {
			return err
		}
		return withCatalog(func(catalog *db.DB) error {
			return catalog.PutPartition(cmd.Context(), name.Schema, name.Table, dircache.Partition{
				Name:     args[1],
				Location: args[2],
			})
		})
	},
}

var tableRemoveCmd = &cobra.Command{
	Use:   "rm <schema.table>",
	Short: "Remove a table and its partitions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := dircache.ParseSchemaTableName(args[0])
		if err != nil {
			return err
		}
		return withCatalog(func(catalog *db.DB) error {
			return catalog.DeleteTable(cmd.Context(), name.Schema, name.Table)
		})
	},
}

var tableListCmd = &cobra.Command{
	Use:   "list [schema.table]",
	Short: "List tables, or the partitions of one table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(catalog *db.DB) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer func() {
				errutil.LogMsg(w.Flush(), "Failed to flush output")
			}()

			if len(args) == 0 {
				tables, err := catalog.ListTables(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range tables {
					fmt.Fprintf(w, "%s\t%s\n", t.SchemaTableName(), t.Location)
				}
				return nil
			}

			name, err := dircache.ParseSchemaTableName(args[0])
			if err != nil {
				return err
			}
			partitions, err := catalog.ListPartitions(cmd.Context(), name.Schema, name.Table)
			if err != nil {
				return err
			}
			for _, p := range partitions {
				fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Location)
			}
			return nil
		})
	},
}

func withCatalog(fn func(*db.DB) error) error {
	catalog, err := db.Open(viper.GetString("catalog"))
	if err != nil {
		return err
	}
	defer func() {
		errutil.LogMsg(catalog.Close(), "Failed to close catalog")
	}()
	return fn(catalog)
}

func init() {
	rootCmd.AddCommand(tableCmd)
	tableCmd.AddCommand(tableAddCmd, tablePartitionCmd, tableRemoveCmd, tableListCmd)

	tableCmd.PersistentFlags().String("catalog", "dircache.db", "Path to the table catalog database")
}
