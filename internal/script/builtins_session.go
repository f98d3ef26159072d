// SPDX-License-Identifier: MPL-2.0

package script

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/pmake/pmake/internal/issue"
	"github.com/pmake/pmake/internal/platform"

	"github.com/charmbracelet/lipgloss"
)

// LevelCritical is the slog level of the critical builtin. It matches the
// fatal level of charmbracelet/log without terminating the process.
const LevelCritical = slog.Level(12)

// ansiColors maps the color names accepted by echo_color to ANSI codes.
var ansiColors = map[string]string{
	"black": "0", "red": "1", "green": "2", "yellow": "3",
	"blue": "4", "magenta": "5", "cyan": "6", "white": "7",
	"bright_black": "8", "bright_red": "9", "bright_green": "10", "bright_yellow": "11",
	"bright_blue": "12", "bright_magenta": "13", "bright_cyan": "14", "bright_white": "15",
}

func init() {
	registerAll(CategorySession,
		Builtin{Name: "echo_color", Usage: "[--fg COLOR] [--bg COLOR] MESSAGE...", Description: "Print a colored message", Run: runEchoColor},
		Builtin{Name: "debug", Usage: "MESSAGE...", Description: "Log a message at debug level", Run: logRunner(slog.LevelDebug)},
		Builtin{Name: "info", Usage: "MESSAGE...", Description: "Log a message at info level", Run: logRunner(slog.LevelInfo)},
		Builtin{Name: "warning", Usage: "MESSAGE...", Description: "Log a message at warning level", Run: logRunner(slog.LevelWarn)},
		Builtin{Name: "critical", Usage: "MESSAGE...", Description: "Log a message at critical level", Run: logRunner(LevelCritical)},
		Builtin{Name: "ensure_condition", Usage: "[-m MESSAGE] CODE...", Description: "Halt the script unless CODE succeeds", Run: runEnsureCondition},
		Builtin{Name: "ensure_has_variable", Usage: "NAME", Description: "Halt the script unless variable NAME was passed to pmake", Run: runEnsureHasVariable},
		Builtin{Name: "specifies_target", Usage: "TARGET", Description: "Succeed when TARGET was requested on the command line", Run: runSpecifiesTarget},
		Builtin{Name: "require_pmake_version", Usage: "VERSION|CONSTRAINT", Description: "Halt the script unless the running pmake satisfies the requirement", Run: runRequirePMakeVersion},
		Builtin{Name: "get_starting_cwd", Description: "Print the directory pmake was started from", Run: printRunner(func(c *Call) string { return c.Session.StartingCwd() })},
		Builtin{Name: "get_pmakefile_path", Description: "Print the path of the running PMakefile", Run: printRunner(func(c *Call) string { return c.Session.ScriptPath() })},
		Builtin{Name: "get_pmakefile_dirpath", Description: "Print the directory of the running PMakefile", Run: printRunner(func(c *Call) string { return c.Session.ScriptDir() })},
		Builtin{Name: "get_home_folder", Description: "Print the home directory of the current user", Run: runGetHomeFolder},
		Builtin{Name: "current_user", Description: "Print the name of the current user", Run: runCurrentUser},
		Builtin{Name: "on_windows", Description: "Succeed on Windows", Run: osRunner(platform.IsWindows)},
		Builtin{Name: "on_linux", Description: "Succeed on Linux", Run: osRunner(func(goos string) bool { return goos == platform.Linux })},
		Builtin{Name: "on_posix", Description: "Succeed on POSIX systems", Run: osRunner(platform.IsPOSIX)},
		Builtin{Name: "match", Usage: "STRING REGEX", Description: "Succeed when REGEX matches the whole STRING", Run: runMatch},
		Builtin{Name: "search", Usage: "STRING REGEX", Description: "Succeed when REGEX matches part of STRING", Run: runSearch},
		Builtin{Name: "convert_table", Description: "Read a space-aligned table from stdin and print it tab separated", Run: runConvertTable},
		Builtin{Name: "get_column_of_table", Usage: "[--table] INDEX", Description: "Print column INDEX (from 0) of the tab separated table on stdin", Run: runColumnOfTable},
		Builtin{Name: "get_column_of_table_by_name", Usage: "[--table] NAME", Description: "Print the column whose header is NAME of the table on stdin", Run: runColumnOfTableByName},
		Builtin{Name: "pmake_commands", Usage: "[--category C] [--long]", Description: "List the builtins", Run: runPMakeCommands},
	)
}

func runEchoColor(_ context.Context, c *Call) error {
	flags := c.Flags()
	fg := flags.String("fg", "", "foreground color name, ANSI code or #rrggbb")
	bg := flags.String("bg", "", "background color name, ANSI code or #rrggbb")
	args, err := c.Parse(flags, 1, -1)
	if err != nil {
		return err
	}

	style := lipgloss.NewRenderer(c.Stdout).NewStyle()
	if *fg != "" {
		color, err := c.color(*fg)
		if err != nil {
			return err
		}
		style = style.Foreground(color)
	}
	if *bg != "" {
		color, err := c.color(*bg)
		if err != nil {
			return err
		}
		style = style.Background(color)
	}
	c.Println(style.Render(strings.Join(args, " ")))
	return nil
}

func (c *Call) color(name string) (lipgloss.Color, error) {
	if code, ok := ansiColors[strings.ToLower(name)]; ok {
		return lipgloss.Color(code), nil
	}
	if strings.HasPrefix(name, "#") {
		return lipgloss.Color(name), nil
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n <= 255 {
		return lipgloss.Color(name), nil
	}
	return "", c.usageError(fmt.Sprintf("unknown color %q", name))
}

func logRunner(level slog.Level) RunFunc {
	return func(ctx context.Context, c *Call) error {
		args, err := c.positional(1, -1)
		if err != nil {
			return err
		}
		c.Session.Logger().Log(ctx, level, strings.Join(args, " "))
		return nil
	}
}

func runEnsureCondition(ctx context.Context, c *Call) error {
	flags := c.Flags()
	message := flags.StringP("message", "m", "", "message of the failure")
	flags.SetInterspersed(false)
	args, err := c.Parse(flags, 1, -1)
	if err != nil {
		return err
	}
	code := strings.Join(args, " ")
	if err := c.Eval(ctx, code); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// A fresh error: wrapping the shell status would make the failure
		// non-fatal for the interpreter.
		msg := *message
		if msg == "" {
			msg = fmt.Sprintf("condition %q does not hold", code)
		}
		return c.halt(issue.ScriptExecutionFailedId, errors.New(msg))
	}
	return nil
}

func runEnsureHasVariable(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	if !c.Session.HasVariable(args[0]) {
		return c.halt(issue.MissingVariableId, fmt.Errorf("variable %q is required; pass it with -V %s=VALUE", args[0], args[0]))
	}
	return nil
}

func runSpecifiesTarget(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	return answer(c.Session.SpecifiesTarget(args[0]))
}

func runRequirePMakeVersion(_ context.Context, c *Call) error {
	args, err := c.positional(1, -1)
	if err != nil {
		return err
	}
	return requireVersion(c, strings.Join(args, " "))
}

func printRunner(value func(*Call) string) RunFunc {
	return func(_ context.Context, c *Call) error {
		if _, err := c.positional(0, 0); err != nil {
			return err
		}
		c.Println(value(c))
		return nil
	}
}

func runGetHomeFolder(_ context.Context, c *Call) error {
	if _, err := c.positional(0, 0); err != nil {
		return err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.Println(home)
	return nil
}

func runCurrentUser(_ context.Context, c *Call) error {
	if _, err := c.positional(0, 0); err != nil {
		return err
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		c.Println(u.Username)
		return nil
	}
	for _, name := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v, ok := c.LookupEnv(name); ok && v != "" {
			c.Println(v)
			return nil
		}
	}
	return errors.New("cannot determine the current user")
}

func osRunner(is func(goos string) bool) RunFunc {
	return func(_ context.Context, c *Call) error {
		if _, err := c.positional(0, 0); err != nil {
			return err
		}
		return answer(is(c.Session.GOOS()))
	}
}

func runMatch(_ context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	re, err := c.compileRegex(`^(?:` + args[1] + `)$`)
	if err != nil {
		return err
	}
	return answer(re.MatchString(args[0]))
}

func runSearch(_ context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	re, err := c.compileRegex(args[1])
	if err != nil {
		return err
	}
	return answer(re.MatchString(args[0]))
}

// ConvertTable splits a table whose columns are aligned with spaces, such as
// the output of many CLI tools. A column starts where every line has a space
// followed by a non-space.
func ConvertTable(text string) [][]string {
	var lines [][]rune
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, []rune(line))
		}
	}
	if len(lines) == 0 {
		return nil
	}

	width := len(lines[0])
	for _, line := range lines[1:] {
		width = min(width, len(line))
	}
	starts := []int{0}
	for i := 0; i < width; i++ {
		if isColumnStart(lines, i) {
			starts = append(starts, i+1)
		}
	}

	table := make([][]string, 0, len(lines))
	for _, line := range lines {
		row := make([]string, len(starts))
		for j, start := range starts {
			end := len(line)
			if j+1 < len(starts) {
				end = starts[j+1] - 1
			}
			row[j] = strings.TrimSpace(string(line[start:end]))
		}
		table = append(table, row)
	}
	return table
}

func isColumnStart(lines [][]rune, i int) bool {
	for _, line := range lines {
		if line[i] != ' ' {
			return false
		}
		if i+1 < len(line) && line[i+1] == ' ' {
			return false
		}
	}
	return true
}

func (c *Call) readTable(raw bool) ([][]string, error) {
	if c.Stdin == nil {
		return nil, nil
	}
	data, err := io.ReadAll(c.Stdin)
	if err != nil {
		return nil, err
	}
	if raw {
		return ConvertTable(string(data)), nil
	}
	var table [][]string
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r"); line != "" {
			table = append(table, strings.Split(line, "\t"))
		}
	}
	return table, sc.Err()
}

func runConvertTable(_ context.Context, c *Call) error {
	if _, err := c.positional(0, 0); err != nil {
		return err
	}
	table, err := c.readTable(true)
	if err != nil {
		return err
	}
	for _, row := range table {
		c.Println(strings.Join(row, "\t"))
	}
	return nil
}

func printColumn(c *Call, table [][]string, index int) error {
	for i, row := range table {
		if index >= len(row) {
			return fmt.Errorf("row %d has no column %d", i, index)
		}
		c.Println(row[index])
	}
	return nil
}

func runColumnOfTable(_ context.Context, c *Call) error {
	flags := c.Flags()
	raw := flags.Bool("table", false, "stdin is a space-aligned table instead of tab separated")
	args, err := c.Parse(flags, 1, 1)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 0 {
		return c.usageError(fmt.Sprintf("invalid column index %q", args[0]))
	}
	table, err := c.readTable(*raw)
	if err != nil {
		return err
	}
	return printColumn(c, table, index)
}

func runColumnOfTableByName(_ context.Context, c *Call) error {
	flags := c.Flags()
	raw := flags.Bool("table", false, "stdin is a space-aligned table instead of tab separated")
	args, err := c.Parse(flags, 1, 1)
	if err != nil {
		return err
	}
	table, err := c.readTable(*raw)
	if err != nil {
		return err
	}
	if len(table) == 0 {
		return errors.New("the table is empty")
	}
	for i, name := range table[0] {
		if name == args[0] {
			return printColumn(c, table, i)
		}
	}
	return fmt.Errorf("cannot find column named %q in header: %s", args[0], strings.Join(table[0], ", "))
}

func runPMakeCommands(_ context.Context, c *Call) error {
	flags := c.Flags()
	category := flags.String("category", "", "only list this category")
	long := flags.Bool("long", false, "print usage and description")
	if _, err := c.Parse(flags, 0, 0); err != nil {
		return err
	}

	builtins := c.Registry.All()
	if *category != "" {
		builtins = c.Registry.ByCategory(Category(*category))
		if len(builtins) == 0 {
			return c.usageError(fmt.Sprintf("unknown category %q", *category))
		}
	}
	for _, b := range builtins {
		if *long {
			c.Println(strings.Join([]string{b.Name, string(b.Category), b.Usage, b.Description}, "\t"))
		} else {
			c.Println(b.Name)
		}
	}
	return nil
}

