package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/eviction"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func addCacheFlags(flags *pflag.FlagSet) {
	flags.Duration("expire-after-write", time.Minute, "How long a cached listing stays valid")
	flags.Int64("max-weight", 1_000_000, "Max number of cached file entries")
	flags.StringSlice("cached-tables", nil, `Tables whose listings may be cached ("schema.table", or "*" for all)`)
	flags.Int("shards", 0, "Cache shards (0 picks a default)")
	flags.String("eviction-strategy", dircache.DefaultEvictionStrategy,
		fmt.Sprintf("Eviction strategy (%s)", strings.Join(eviction.Names(), ", ")))
	flags.Int("batch-size", 1000, "Directory entries read per file system call")
	flags.String("catalog", "dircache.db", "Path to the table catalog database")
	flags.String("root", "", "Confine listings to this local directory")
}

func cacheConfig() dircache.Config {
	return cacheConfigFrom(viper.GetViper())
}

func cacheConfigFrom(v *viper.Viper) dircache.Config {
	return dircache.Config{
		ExpireAfterWrite: v.GetDuration("expire-after-write"),
		MaxWeight:        v.GetInt64("max-weight"),
		CachedTables:     splitList(v.GetStringSlice("cached-tables")),
		Shards:           v.GetInt("shards"),
		EvictionStrategy: v.GetString("eviction-strategy"),
	}
}

// splitList splits comma separated entries. Values from the environment or a
// config string arrive unsplit, unlike values parsed by the flag.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
