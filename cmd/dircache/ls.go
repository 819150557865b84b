package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/app"
	"github.com/lucasew/dircache/internal/db"
	"github.com/lucasew/dircache/internal/errutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

type listTarget struct {
	ref       string
	table     dircache.Table
	partition *dircache.Partition
}

func (t listTarget) dir() string {
	if t.partition != nil {
		return t.partition.Location
	}
	return t.table.Location
}

var lsCmd = &cobra.Command{
	Use:   "ls <schema.table[/partition]>...",
	Short: "List table or partition directories through the cache",
	Long: `ls resolves each argument in the catalog and lists its directory through a
local caching lister. With --repeat, the same listings are requested again,
so later passes are served from the cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repeat := max(viper.GetInt("repeat"), 1)
		cacheable := !viper.GetBool("no-cache")

		var targets []listTarget
		err := withCatalog(func(catalog *db.DB) error {
			for _, ref := range args {
				table, partition, err := catalog.Resolve(ctx, ref)
				if err != nil {
					return err
				}
				targets = append(targets, listTarget{ref: ref, table: table, partition: partition})
			}
			return nil
		})
		if err != nil {
			return err
		}

		lister, err := app.NewLister(app.Config{
			BatchSize: viper.GetInt("batch-size"),
			Cache:     cacheConfig(),
		})
		if err != nil {
			return err
		}
		fs := app.NewFs(viper.GetString("root"))
		namenodeStats := &dircache.NamenodeStats{}

		results := make([][]dircache.FileInfo, len(targets))
		start := time.Now()
		for pass := 0; pass < repeat; pass++ {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(viper.GetInt("parallelism"), 1))
			for i, target := range targets {
				g.Go(func() error {
					it, err := lister.List(gctx, fs, target.table, target.dir(), target.partition, namenodeStats, dircache.DirectoryContext{
						Cacheable:    cacheable,
						RuntimeStats: dircache.NewRuntimeStats(),
					})
					if err != nil {
						return fmt.Errorf("%s: %w", target.ref, err)
					}
					files, err := dircache.Collect(it)
					if err != nil {
						return fmt.Errorf("%s: %w", target.ref, err)
					}
					results[i] = files
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for i, target := range targets {
			files := slices.Clone(results[i])
			slices.SortFunc(files, func(a, b dircache.FileInfo) int {
				return strings.Compare(a.Path, b.Path)
			})
			for _, f := range files {
				kind := "f"
				if f.IsDir {
					kind = "d"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", target.ref, kind, f.Size, f.Path)
			}
		}
		errutil.LogMsg(w.Flush(), "Failed to flush output")

		if viper.GetBool("stats") {
			stats := lister.Stats()
			fmt.Fprintf(cmd.ErrOrStderr(),
				"passes=%d elapsed=%s hits=%d misses=%d hit_rate=%.2f cached=%d evictions=%d list_calls=%d list_time=%s\n",
				repeat, elapsed.Round(time.Microsecond), stats.HitCount, stats.MissCount, stats.HitRate,
				stats.Size, stats.EvictionCount, namenodeStats.ListCalls(), namenodeStats.ListTime().Round(time.Microsecond))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().Int("repeat", 1, "List every target this many times")
	lsCmd.Flags().Int("parallelism", 4, "Directories listed concurrently")
	lsCmd.Flags().Bool("no-cache", false, "Bypass the cache")
	lsCmd.Flags().Bool("stats", true, "Print a cache statistics summary to stderr")
	addCacheFlags(lsCmd.Flags())
}
