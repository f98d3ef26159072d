// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmake/pmake/internal/cache"
	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/pkg/types"

	"github.com/spf13/cobra"
)

func newCacheCommand(app *App) *cobra.Command {
	var file string

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the persistent cache of PMakefiles",
		Long: `Inspect and edit the persistent cache PMakefiles share between runs.

The cache is a JSON object stored next to the PMakefile (pmake-cache.json
unless cache.file says otherwise). Scripts use it through the cache helpers:
'set_variable_in_cache', 'get_variable_in_cache', ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cacheCmd.PersistentFlags().StringVar(&file, "file", "", "cache file (default from config, relative to the current directory)")

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheFile(app, file)
			if err != nil {
				return app.fail(cmd, 1, err)
			}
			defer func() { _ = store.Close() }()

			_, _ = fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render("Cache"), SubtitleStyle.Render(store.Path()))
			keys := store.Keys()
			if len(keys) == 0 {
				_, _ = fmt.Fprintln(app.stdout, SubtitleStyle.Render("  (empty)"))
				return nil
			}
			for _, key := range keys {
				value, _ := store.GetString(key)
				_, _ = fmt.Fprintf(app.stdout, "  %s = %s\n", CmdStyle.Render(key), SuccessStyle.Render(value))
			}
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Print one cached value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCacheFile(app, file)
			if err != nil {
				return app.fail(cmd, 1, err)
			}
			defer func() { _ = store.Close() }()

			value, ok := store.GetString(args[0])
			if !ok {
				cmd.SilenceErrors = true
				cmd.SilenceUsage = true
				return &ExitError{Code: types.ExitFailure}
			}
			_, _ = fmt.Fprintln(app.stdout, value)
			return nil
		},
	})

	var asJSON bool
	setCmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a value in the cache",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any = args[1]
			if asJSON {
				if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
					return app.fail(cmd, types.ExitUsage, fmt.Errorf("value is not valid JSON: %w", err))
				}
			}

			store, err := openCacheFile(app, file)
			if err != nil {
				return app.fail(cmd, 1, err)
			}
			store.Set(args[0], value, true)
			if err := store.Close(); err != nil {
				return app.fail(cmd, 1, err)
			}
			_, _ = fmt.Fprintf(app.stdout, "%s Set %s\n", SuccessStyle.Render("✓"), args[0])
			return nil
		},
	}
	setCmd.Flags().BoolVar(&asJSON, "json", false, "parse VALUE as a JSON value")
	cacheCmd.AddCommand(setCmd)

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear [KEY...]",
		Short: "Remove some or all cached entries",
		Long: `Remove the given keys, or every entry when no key is given.

A corrupt cache file is deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cacheFilePath(app, file)
			if err != nil {
				return app.fail(cmd, 1, err)
			}

			store, err := cache.Open(path)
			if errors.Is(err, cache.ErrCorruptCache) && len(args) == 0 {
				if err := os.Remove(path); err != nil {
					return app.fail(cmd, 1, err)
				}
				_, _ = fmt.Fprintf(app.stdout, "%s Removed corrupt cache %s\n", SuccessStyle.Render("✓"), path)
				return nil
			}
			if err != nil {
				return app.fail(cmd, 1, cacheOpenError(path, err))
			}

			if len(args) == 0 {
				store.Reset()
			}
			for _, key := range args {
				if !store.Delete(key) {
					app.logger.Warn("key not cached", "key", key)
				}
			}
			if err := store.Close(); err != nil {
				return app.fail(cmd, 1, err)
			}
			_, _ = fmt.Fprintf(app.stdout, "%s Cleared %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	return cacheCmd
}

func cacheFilePath(app *App, file string) (string, error) {
	if file == "" {
		file = app.cfg.Cache.File
	}
	if file == "" {
		return "", errors.New("no cache file configured")
	}
	return filepath.Abs(file)
}

func openCacheFile(app *App, file string) (*cache.Store, error) {
	path, err := cacheFilePath(app, file)
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(path)
	if err != nil {
		return nil, cacheOpenError(path, err)
	}
	return store, nil
}

func cacheOpenError(path string, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("open cache").
		WithResource(path).
		Wrap(err)
	switch {
	case errors.Is(err, cache.ErrCorruptCache):
		ec = ec.WithSuggestion("Run 'pmake cache clear --file " + path + "'").
			WithIssue(issue.CorruptCacheId)
	case errors.Is(err, cache.ErrLocked):
		ec = ec.WithSuggestion("Wait for the other pmake run using this cache to finish").
			WithIssue(issue.CacheLockedId)
	}
	return ec.BuildError()
}
