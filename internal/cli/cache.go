package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rohmanhakim/vendor-bundler/internal/cache"
	"github.com/rohmanhakim/vendor-bundler/internal/fetcher"
	"github.com/rohmanhakim/vendor-bundler/internal/metadata"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the download cache.",
}

var cachePathCmd = &cobra.Command{
	Use:   "path SOURCE...",
	Short: "Print the local path each source resolves to, without downloading.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := inspectResolver(args)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, src := range args {
			loc := resolver.Locate(src)
			fmt.Fprintf(w, "%s\t%s\t%s\n", loc.Path(), locationState(loc), loc.Source())
		}
		return w.Flush()
	},
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached downloads.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := inspectResolver(nil)
		if err != nil {
			return err
		}

		entries, cacheErr := resolver.Entries()
		if cacheErr != nil {
			return cacheErr
		}
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "cache %s is empty\n", resolver.Dir())
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED\tBLAKE3")
		var total int64
		for _, e := range entries {
			total += e.Size()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				e.Name(),
				humanize.Bytes(uint64(e.Size())),
				humanize.Time(e.ModTime()),
				e.Digest(),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d entries, %s in %s\n",
			len(entries), humanize.Bytes(uint64(total)), resolver.Dir())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePathCmd)
	cacheCmd.AddCommand(cacheLsCmd)
}

// inspectResolver builds a resolver for read-only cache commands. It never
// fetches, so sources are not validated here.
func inspectResolver(sources []string) (*cache.Resolver, error) {
	configBuilder, err := newConfigBuilder(sources)
	if err != nil {
		return nil, err
	}
	sink := &metadata.NoopSink{}
	return cache.NewResolver(configBuilder.CacheDir(), fetcher.NewHTTPFetcher(sink, nil), sink), nil
}

func locationState(loc cache.Location) string {
	switch {
	case !loc.Remote():
		return "local"
	case loc.Cached():
		return "cached"
	default:
		return "missing"
	}
}
