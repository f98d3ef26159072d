// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/pmake/pmake/internal/script"
	"github.com/pmake/pmake/internal/session"
	"github.com/pmake/pmake/pkg/interesting"

	"github.com/spf13/cobra"
)

func newPathsCommand(app *App) *cobra.Command {
	var (
		arch string
		all  bool
	)

	pathsCmd := &cobra.Command{
		Use:   "paths [NAME]",
		Short: "List discovered interesting paths",
		Long: `List the tool installations pmake discovered on this host.

Entries are grouped by name. The installation a script gets from
'latest_interesting_path NAME' is marked with '*'. Installations built
for another architecture are hidden unless --all is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context(), app, "")
			if err != nil {
				return app.fail(cmd, 1, err)
			}
			defer func() { _ = sess.Close() }()

			target, err := architectureOrDefault(arch, sess)
			if err != nil {
				return app.fail(cmd, script.StatusOf(err), err)
			}
			names := sess.Catalog().Names()
			if len(args) == 1 {
				if !sess.Catalog().Has(args[0]) {
					err := &interesting.UnknownInterestingPathNameError{Name: args[0]}
					return app.fail(cmd, script.StatusOf(err), err)
				}
				names = args
			}
			printCatalog(app, sess, names, target, all)
			return nil
		},
	}
	pathsCmd.Flags().StringVar(&arch, "arch", "", "architecture to resolve for: 32 or 64 (default: host)")
	pathsCmd.Flags().BoolVar(&all, "all", false, "also list installations of other architectures")

	latestCmd := &cobra.Command{
		Use:   "latest NAME",
		Short: "Print the latest installation of NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd.Context(), app, "")
			if err != nil {
				return app.fail(cmd, 1, err)
			}
			defer func() { _ = sess.Close() }()

			target, err := architectureOrDefault(arch, sess)
			if err != nil {
				return app.fail(cmd, script.StatusOf(err), err)
			}
			p, err := sess.LatestPathWithArchitecture(args[0], target)
			if err != nil {
				return app.fail(cmd, script.StatusOf(err), err)
			}
			_, _ = fmt.Fprintln(app.stdout, p.Path)
			return nil
		},
	}
	latestCmd.Flags().StringVar(&arch, "arch", "", "architecture to resolve for: 32 or 64 (default: host)")
	pathsCmd.AddCommand(latestCmd)

	return pathsCmd
}

func architectureOrDefault(flag string, sess *session.Session) (interesting.Architecture, error) {
	if flag == "" {
		return sess.Architecture(), nil
	}
	return interesting.ParseArchitecture(flag)
}

func printCatalog(app *App, sess *session.Session, names []string, arch interesting.Architecture, all bool) {
	catalog := sess.Catalog()
	if catalog.Len() == 0 {
		_, _ = fmt.Fprintln(app.stdout, SubtitleStyle.Render("No interesting paths discovered on "+sess.Platform()))
		return
	}

	_, _ = fmt.Fprintf(app.stdout, "%s %s\n\n",
		TitleStyle.Render("Interesting paths"),
		SubtitleStyle.Render(fmt.Sprintf("(%s, %s-bit)", sess.Platform(), arch)))

	for _, name := range names {
		paths, _ := catalog.Paths(name)
		latest := interesting.LatestIndex(paths, arch)

		_, _ = fmt.Fprintln(app.stdout, CmdStyle.Render(name))
		shown := 0
		for i, p := range paths {
			if p.Architecture != arch && !all {
				continue
			}
			shown++
			line := fmt.Sprintf("%-12s %-3s %s", p.Version, p.Architecture, p.Path)
			if i == latest {
				_, _ = fmt.Fprintln(app.stdout, "  * "+SuccessStyle.Render(line))
				continue
			}
			_, _ = fmt.Fprintln(app.stdout, "    "+VerboseStyle.Render(line))
		}
		if shown == 0 {
			_, _ = fmt.Fprintln(app.stdout, "    "+WarningStyle.Render(fmt.Sprintf("no %s-bit installation", arch)))
		}
	}
}
