// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	PMakefileNotFoundId Id = iota + 1
	PMakefileParseErrorId
	UnsupportedPlatformId
	PathDiscoveryFailedId
	CorruptCacheId
	ScriptExecutionFailedId
	ConfigLoadFailedId
	ShellNotFoundId
	PermissionDeniedId
	PMakeVersionMismatchId
	UnknownInterestingPathId
	MissingVariableId
	CacheLockedId
)

type (
	// MarkdownMsg is Markdown text rendered for the terminal.
	MarkdownMsg string

	// HttpLink is an external reference shown under "See also".
	HttpLink string

	// Issue is a catalog entry explaining a class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) ExtLinks() []HttpLink { return slices.Clone(i.extLinks) }

// Render formats the issue with the glamour style at stylePath ("dark",
// "light", "notty", "auto" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	pmakefileNotFoundIssue = &Issue{
		id: PMakefileNotFoundId,
		mdMsg: `
# No PMakefile found!

pmake looks for the script named by ` + "`--file`" + `, or for the default
file (` + "`PMakefile`" + `) in the current directory.

## Things you can try:
- Point pmake at your script:
~~~
$ pmake run -f path/to/PMakefile build
~~~

- Run an inline script instead:
~~~
$ pmake run -s 'echo_color --fg green "hello"'
~~~

- Change the default file name in your configuration:
~~~cue
script: default_file: "Buildfile"
~~~`,
	}

	pmakefileParseErrorIssue = &Issue{
		id: PMakefileParseErrorId,
		mdMsg: `
# The PMakefile could not be parsed!

A PMakefile is a POSIX shell script. The line and column in the error point
at the first token the parser could not understand.

## Things you can try:
- Check for unbalanced quotes, ` + "`if`/`fi`" + ` or ` + "`case`/`esac`" + ` pairs
- Avoid bash-only syntax such as ` + "`[[ ... ]]`" + ` when in doubt
- Validate the script with another shell:
~~~
$ sh -n PMakefile
~~~`,
		extLinks: []HttpLink{"https://pubs.opengroup.org/onlinepubs/9799919799/utilities/V3_chap02.html"},
	}

	unsupportedPlatformIssue = &Issue{
		id: UnsupportedPlatformId,
		mdMsg: `
# Cannot identify platform!

pmake discovers installed tools differently on Windows and on Unix-like
systems, and does not know how to do it on this one.

## Supported systems:
- Windows
- Linux, macOS, FreeBSD, NetBSD, OpenBSD, DragonFly, Solaris, illumos, AIX`,
	}

	pathDiscoveryFailedIssue = &Issue{
		id: PathDiscoveryFailedId,
		mdMsg: `
# Interesting path discovery failed!

Before running the PMakefile, pmake scans well-known folders for installed
tools (JDKs, Python interpreters, CMake, ...). The scan stopped with an error.

## Things you can try:
- Check the rules added under ` + "`paths: rules`" + ` in your configuration
- Make sure the scanned folders are readable
- List what pmake can see:
~~~
$ pmake paths --all
~~~`,
	}

	corruptCacheIssue = &Issue{
		id: CorruptCacheId,
		mdMsg: `
# The pmake cache is corrupt!

The cache file is not a valid JSON object, so values stored by earlier runs
cannot be read back.

## Things you can try:
- Reset it:
~~~
$ pmake cache clear
~~~

- Or delete the file and let pmake recreate it`,
	}

	scriptExecutionFailedIssue = &Issue{
		id: ScriptExecutionFailedId,
		mdMsg: `
# The PMakefile failed!

A command in the script stopped the run.

## Things you can try:
- Re-run with debug logging to trace every builtin:
~~~
$ pmake run --log-level debug
~~~

- Check the exit status printed above: builtins answer 3 for unknown
  interesting paths, 4 when no installation matches the architecture and 5 for
  malformed versions`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file is not valid CUE or does not match the schema.

## Things you can try:
- Show where the file lives:
~~~
$ pmake config path
~~~

- Write a fresh default:
~~~
$ pmake config init --force
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/tour/"},
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# No shell found!

The execute builtins hand their commands to the host shell: ` + "`$SHELL`" + `,
bash or sh on Unix-like systems; pwsh, powershell or cmd on Windows.

## Things you can try:
- Set the ` + "`SHELL`" + ` environment variable
- Pass a shell explicitly:
~~~
execute_return_stdout --shell /bin/bash "echo hi"
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

pmake was not allowed to read or write a file it needed.

## Things you can try:
- Check the permissions of the PMakefile, the cache file and the target folders
- Use the ` + "`execute_admin_*`" + ` builtins for steps that need elevation`,
	}

	pmakeVersionMismatchIssue = &Issue{
		id: PMakeVersionMismatchId,
		mdMsg: `
# This PMakefile needs another pmake version!

The script called ` + "`require_pmake_version`" + ` with a constraint the running
pmake does not satisfy.

## Things you can try:
- Check your version:
~~~
$ pmake --version
~~~

- Install a pmake release matching the constraint`,
		extLinks: []HttpLink{"https://github.com/Masterminds/semver#checking-version-constraints"},
	}

	unknownInterestingPathIssue = &Issue{
		id: UnknownInterestingPathId,
		mdMsg: `
# Unknown interesting path!

No installation was discovered under the requested name.

## Things you can try:
- List the discovered names:
~~~
$ pmake paths
~~~

- Teach pmake where to look:
~~~cue
paths: rules: [{
	name:    "android-sdk"
	roots:   ["$HOME/Android"]
	pattern: "^sdk-(?P<version>[0-9.]+)$"
}]
~~~`,
	}

	missingVariableIssue = &Issue{
		id: MissingVariableId,
		mdMsg: `
# A required variable is missing!

The PMakefile asked for a variable that was not passed on the command line.

## Things you can try:
~~~
$ pmake run -V name=value
$ pmake run --variables-file vars.toml
~~~`,
	}

	cacheLockedIssue = &Issue{
		id: CacheLockedId,
		mdMsg: `
# The pmake cache is busy!

Another pmake process kept the cache file locked longer than pmake was
willing to wait.

## Things you can try:
- Wait for the other run to finish and try again
- Use a separate cache for this run:
~~~
$ pmake run --cache-file other-cache.json
$ pmake run --no-cache
~~~`,
	}

	issues = map[Id]*Issue{
		pmakefileNotFoundIssue.Id():      pmakefileNotFoundIssue,
		pmakefileParseErrorIssue.Id():    pmakefileParseErrorIssue,
		unsupportedPlatformIssue.Id():    unsupportedPlatformIssue,
		pathDiscoveryFailedIssue.Id():    pathDiscoveryFailedIssue,
		corruptCacheIssue.Id():           corruptCacheIssue,
		scriptExecutionFailedIssue.Id():  scriptExecutionFailedIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		shellNotFoundIssue.Id():          shellNotFoundIssue,
		permissionDeniedIssue.Id():       permissionDeniedIssue,
		pmakeVersionMismatchIssue.Id():   pmakeVersionMismatchIssue,
		unknownInterestingPathIssue.Id(): unknownInterestingPathIssue,
		missingVariableIssue.Id():        missingVariableIssue,
		cacheLockedIssue.Id():            cacheLockedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	all := maps.Values(issues)
	slices.SortFunc(all, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return all
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
