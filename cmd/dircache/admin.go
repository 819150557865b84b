package main

import (
	"encoding/json"
	"fmt"

	"github.com/lucasew/dircache/internal/httpclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate [path]",
	Short: "Drop the cached listing of a directory, or of every directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path *string
		if len(args) == 1 {
			path = &args[0]
		}
		return adminClient().Invalidate(cmd.Context(), path)
	},
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Drop every cached listing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminClient().Flush(cmd.Context())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := adminClient().Stats(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			return fmt.Errorf("failed to print stats: %w", err)
		}
		return nil
	},
}

func adminClient() *httpclient.Client {
	return httpclient.NewClient(viper.GetString("server"))
}

func init() {
	for _, cmd := range []*cobra.Command{invalidateCmd, flushCmd, statsCmd} {
		cmd.Flags().String("server", "http://localhost:8080", "Address of the dircache server")
		rootCmd.AddCommand(cmd)
	}
}
