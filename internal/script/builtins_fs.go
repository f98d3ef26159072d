// SPDX-License-Identifier: MPL-2.0

package script

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/u-root/u-root/pkg/core"
	"github.com/u-root/u-root/pkg/core/chmod"
	"github.com/u-root/u-root/pkg/core/cp"
	"github.com/u-root/u-root/pkg/core/mkdir"
	"github.com/u-root/u-root/pkg/core/mktemp"
	"github.com/u-root/u-root/pkg/core/mv"
	"github.com/u-root/u-root/pkg/core/rm"
	"github.com/u-root/u-root/pkg/core/touch"
)

func init() {
	registerAll(CategoryFS,
		Builtin{Name: "create_empty_file", Usage: "PATH", Description: "Create PATH, or truncate it when it exists", Run: runCreateEmptyFile},
		Builtin{Name: "create_empty_directory", Usage: "PATH", Description: "Create a directory and its parents", Run: runMakeDirectories},
		Builtin{Name: "make_directories", Usage: "PATH...", Description: "Create directories and their parents", Run: runMakeDirectories},
		Builtin{Name: "is_file_exists", Usage: "PATH", Description: "Succeed when PATH is a regular file", Run: runIsFileExists},
		Builtin{Name: "is_directory_exists", Usage: "PATH", Description: "Succeed when PATH is a directory", Run: runIsDirectoryExists},
		Builtin{Name: "is_file_empty", Usage: "PATH", Description: "Succeed when PATH is a file of zero bytes", Run: runIsFileEmpty},
		Builtin{Name: "is_file_non_empty", Usage: "PATH", Description: "Succeed when PATH is a file with content", Run: runIsFileNonEmpty},
		Builtin{Name: "is_directory_empty", Usage: "PATH", Description: "Succeed when PATH is a directory without entries", Run: runIsDirectoryEmpty},
		Builtin{Name: "write_file", Usage: "[--overwrite] [--no-newline] PATH CONTENT...", Description: "Write CONTENT to PATH unless it exists", Run: runWriteFile},
		Builtin{Name: "write_lines", Usage: "[--overwrite] PATH LINE...", Description: "Write one LINE per line to PATH unless it exists", Run: runWriteLines},
		Builtin{Name: "read_file_content", Usage: "[--keep-whitespace] PATH", Description: "Print the content of PATH, trimmed", Run: runReadFileContent},
		Builtin{Name: "read_lines", Usage: "PATH", Description: "Print the non-blank lines of PATH", Run: runReadLines},
		Builtin{Name: "append_string_at_end_of_file", Usage: "PATH STRING...", Description: "Append each STRING as a line of PATH", Run: runAppendStrings},
		Builtin{Name: "remove_last_n_line_from_file", Usage: "[-n N] [--consider-empty] PATH", Description: "Remove the last N lines of PATH and print them", Run: runRemoveLastLines},
		Builtin{Name: "copy_file", Usage: "SRC DST", Description: "Copy a single file", Run: runCopyFile},
		Builtin{Name: "copy_tree", Usage: "SRC DST", Description: "Copy a file or a whole directory tree; a tree destination must not exist", Run: runCopyTree},
		Builtin{Name: "copy_folder_content", Usage: "FOLDER DEST", Description: "Copy every entry of FOLDER into DEST", Run: runCopyFolderContent},
		Builtin{Name: "copy_files_that_basename", Usage: "SRC DST REGEX", Description: "Copy the files below SRC whose base name matches REGEX, keeping their layout", Run: runCopyFilesThatBasename},
		Builtin{Name: "move_file", Usage: "SRC DST", Description: "Move a file", Run: runMove},
		Builtin{Name: "move_tree", Usage: "SRC DST", Description: "Move a file or directory tree", Run: runMove},
		Builtin{Name: "remove_file", Usage: "[--strict] PATH", Description: "Remove a file; fail when it was not there", Run: runRemoveFile},
		Builtin{Name: "remove_tree", Usage: "[--strict] PATH", Description: "Remove a directory tree", Run: runRemoveTree},
		Builtin{Name: "remove_files_that_basename", Usage: "SRC REGEX", Description: "Remove the files below SRC whose base name matches REGEX", Run: runRemoveFilesThatBasename},
		Builtin{Name: "ls", Usage: "[--abs] [DIR]", Description: "List the entries of a directory", Run: lsRunner(func(fs.DirEntry) bool { return true })},
		Builtin{Name: "ls_only_files", Usage: "[--abs] [DIR]", Description: "List the files of a directory", Run: lsRunner(func(e fs.DirEntry) bool { return !e.IsDir() })},
		Builtin{Name: "ls_only_directories", Usage: "[--abs] [DIR]", Description: "List the subdirectories of a directory", Run: lsRunner(fs.DirEntry.IsDir)},
		Builtin{Name: "ls_recursive", Usage: "[DIR]", Description: "List every file below a directory, as absolute paths", Run: walkRunner(false)},
		Builtin{Name: "ls_directories_recursive", Usage: "[DIR]", Description: "List every directory below a directory, as absolute paths", Run: walkRunner(true)},
		Builtin{Name: "abs_wrt_cwd", Usage: "PATH...", Description: "Join PATHs to the current directory and print the absolute result", Run: runAbsWrtCwd},
		Builtin{Name: "get_relative_path_wrt", Usage: "PATH REFERENCE", Description: "Print PATH relative to REFERENCE", Run: runRelativePath},
		Builtin{Name: "create_temp_file", Usage: "[--dir D] [--prefix P] [--suffix S]", Description: "Create a temporary file and print its path", Run: runCreateTempFile},
		Builtin{Name: "create_temp_directory", Usage: "[--prefix P]", Description: "Create a temporary directory and print its path", Run: runCreateTempDirectory},
		Builtin{Name: "allow_file_to_be_executed_by_anyone", Usage: "PATH", Description: "Add the execute permission for everybody", Run: runAllowExecution},
		Builtin{Name: "download_url", Usage: "[--force] URL [DEST]", Description: "Download URL to DEST and print the destination", Run: runDownloadURL},
	)
}

// coreRun runs a u-root core command in the shell's directory and streams.
func (c *Call) coreRun(ctx context.Context, cmd core.Command, args ...string) error {
	cmd.SetIO(c.Stdin, c.Stdout, c.Stderr)
	cmd.SetWorkingDir(c.Dir)
	cmd.SetLookupEnv(c.LookupEnv)
	if err := cmd.RunContext(ctx, args...); err != nil {
		return fmt.Errorf("%s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func (c *Call) paths(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = c.Path(a)
	}
	return out
}

func statOf(path string) (os.FileInfo, bool) {
	info, err := os.Stat(path)
	return info, err == nil
}

func runCreateEmptyFile(ctx context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	p := c.Path(args[0])
	if _, exists := statOf(p); exists {
		return os.Truncate(p, 0)
	}
	return c.coreRun(ctx, touch.New(), p)
}

func runMakeDirectories(ctx context.Context, c *Call) error {
	maxArgs := -1
	if c.Name == "create_empty_directory" {
		maxArgs = 1
	}
	args, err := c.positional(1, maxArgs)
	if err != nil {
		return err
	}
	return c.coreRun(ctx, mkdir.New(), append([]string{"-p"}, c.paths(args)...)...)
}

func runIsFileExists(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	info, ok := statOf(c.Path(args[0]))
	return answer(ok && info.Mode().IsRegular())
}

func runIsDirectoryExists(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	info, ok := statOf(c.Path(args[0]))
	return answer(ok && info.IsDir())
}

func runIsFileEmpty(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	info, ok := statOf(c.Path(args[0]))
	return answer(ok && info.Mode().IsRegular() && info.Size() == 0)
}

func runIsFileNonEmpty(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	info, ok := statOf(c.Path(args[0]))
	return answer(ok && info.Mode().IsRegular() && info.Size() > 0)
}

func runIsDirectoryEmpty(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(c.Path(args[0]))
	return answer(err == nil && len(entries) == 0)
}

func writeUnlessExists(path, content string, overwrite bool) error {
	if _, exists := statOf(path); exists && !overwrite {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func runWriteFile(_ context.Context, c *Call) error {
	flags := c.Flags()
	overwrite := flags.Bool("overwrite", false, "replace an existing file")
	noNewline := flags.Bool("no-newline", false, "do not end the content with a newline")
	args, err := c.Parse(flags, 1, -1)
	if err != nil {
		return err
	}
	content := strings.Join(args[1:], " ")
	if !*noNewline {
		content += "\n"
	}
	return writeUnlessExists(c.Path(args[0]), content, *overwrite)
}

func runWriteLines(_ context.Context, c *Call) error {
	flags := c.Flags()
	overwrite := flags.Bool("overwrite", false, "replace an existing file")
	args, err := c.Parse(flags, 1, -1)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, line := range args[1:] {
		b.WriteString(line + "\n")
	}
	return writeUnlessExists(c.Path(args[0]), b.String(), *overwrite)
}

func runReadFileContent(_ context.Context, c *Call) error {
	flags := c.Flags()
	keep := flags.Bool("keep-whitespace", false, "do not trim surrounding whitespace")
	args, err := c.Parse(flags, 1, 1)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.Path(args[0]))
	if err != nil {
		return err
	}
	if *keep {
		_, err = c.Stdout.Write(data)
		return err
	}
	c.Println(strings.Trim(string(data), "\t\n\r "))
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func runReadLines(_ context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	lines, err := readLines(c.Path(args[0]))
	if err != nil {
		return err
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		c.Println(strings.TrimRight(line, "\r"))
	}
	return nil
}

func runAppendStrings(_ context.Context, c *Call) error {
	args, err := c.positional(2, -1)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(c.Path(args[0]), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	for _, s := range args[1:] {
		if _, err := io.WriteString(f, s+"\n"); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}

func runRemoveLastLines(_ context.Context, c *Call) error {
	flags := c.Flags()
	n := flags.IntP("lines", "n", 1, "number of lines to remove")
	considerEmpty := flags.Bool("consider-empty", false, "count blank lines")
	args, err := c.Parse(flags, 1, 1)
	if err != nil {
		return err
	}
	if *n < 0 {
		return c.usageError("-n must not be negative")
	}
	path := c.Path(args[0])
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	cut := len(lines)
	counted := 0
	for cut > 0 && counted < *n {
		cut--
		if *considerEmpty || strings.TrimSpace(lines[cut]) != "" {
			counted++
		}
	}

	var kept strings.Builder
	for _, line := range lines[:cut] {
		kept.WriteString(line + "\n")
	}
	if err := os.WriteFile(path, []byte(kept.String()), 0o644); err != nil {
		return err
	}
	c.PrintLines(lines[cut:])
	return nil
}

func runCopyFile(ctx context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	return c.coreRun(ctx, cp.New(), c.paths(args)...)
}

func runCopyTree(ctx context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	src, dst := c.Path(args[0]), c.Path(args[1])
	info, ok := statOf(src)
	switch {
	case !ok:
		return fmt.Errorf("cannot copy %s: no such file or directory", src)
	case info.IsDir():
		// cp -r would nest src inside an existing dst.
		if _, exists := statOf(dst); exists {
			return fmt.Errorf("cannot copy tree to %s: destination already exists", dst)
		}
		return c.coreRun(ctx, cp.New(), "-r", src, dst)
	default:
		return c.coreRun(ctx, cp.New(), src, dst)
	}
}

func runCopyFolderContent(ctx context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	folder, dest := c.Path(args[0]), c.Path(args[1])
	entries, err := os.ReadDir(folder)
	if err != nil {
		return err
	}
	if err := c.coreRun(ctx, mkdir.New(), "-p", dest); err != nil {
		return err
	}
	for _, e := range entries {
		src := filepath.Join(folder, e.Name())
		if err := c.coreRun(ctx, cp.New(), "-r", src, filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *Call) compileRegex(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, c.usageError(fmt.Sprintf("invalid regular expression: %v", err))
	}
	return re, nil
}

// filesBelow returns every non-directory below root whose base name matches re.
func filesBelow(root string, re *regexp.Regexp) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && re.MatchString(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func runCopyFilesThatBasename(ctx context.Context, c *Call) error {
	args, err := c.positional(3, 3)
	if err != nil {
		return err
	}
	re, err := c.compileRegex(args[2])
	if err != nil {
		return err
	}
	src, dst := c.Path(args[0]), c.Path(args[1])
	files, err := filesBelow(src, re)
	if err != nil {
		return err
	}
	for _, f := range files {
		rel, err := filepath.Rel(src, f)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := c.coreRun(ctx, mkdir.New(), "-p", filepath.Dir(target)); err != nil {
			return err
		}
		if err := c.coreRun(ctx, cp.New(), f, target); err != nil {
			return err
		}
	}
	return nil
}

func runMove(ctx context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	return c.coreRun(ctx, mv.New(), c.paths(args)...)
}

func runRemoveFile(ctx context.Context, c *Call) error {
	flags := c.Flags()
	strict := flags.Bool("strict", false, "report a missing file as an error")
	args, err := c.Parse(flags, 1, 1)
	if err != nil {
		return err
	}
	p := c.Path(args[0])
	if _, err := os.Lstat(p); err != nil {
		if *strict {
			return err
		}
		return answer(false)
	}
	return c.coreRun(ctx, rm.New(), p)
}

func runRemoveTree(ctx context.Context, c *Call) error {
	flags := c.Flags()
	strict := flags.Bool("strict", false, "report a missing tree as an error")
	args, err := c.Parse(flags, 1, 1)
	if err != nil {
		return err
	}
	p := c.Path(args[0])
	if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) && !*strict {
		return nil
	}
	return c.coreRun(ctx, rm.New(), "-r", p)
}

func runRemoveFilesThatBasename(ctx context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	re, err := c.compileRegex(args[1])
	if err != nil {
		return err
	}
	files, err := filesBelow(c.Path(args[0]), re)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := c.coreRun(ctx, rm.New(), "-f", f); err != nil {
			c.Logger().Debug("cannot remove file", "file", f, "error", err)
		}
	}
	return nil
}

func lsRunner(keep func(fs.DirEntry) bool) RunFunc {
	return func(_ context.Context, c *Call) error {
		flags := c.Flags()
		abs := flags.Bool("abs", false, "print absolute paths")
		args, err := c.Parse(flags, 0, 1)
		if err != nil {
			return err
		}
		dir := c.Dir
		if len(args) == 1 {
			dir = c.Path(args[0])
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !keep(e) {
				continue
			}
			if *abs {
				c.Println(filepath.Join(dir, e.Name()))
			} else {
				c.Println(e.Name())
			}
		}
		return nil
	}
}

func walkRunner(dirs bool) RunFunc {
	return func(_ context.Context, c *Call) error {
		args, err := c.positional(0, 1)
		if err != nil {
			return err
		}
		root := c.Dir
		if len(args) == 1 {
			root = c.Path(args[0])
		}
		var out []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && d.IsDir() == dirs {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
		sort.Strings(out)
		c.PrintLines(out)
		return nil
	}
}

func runAbsWrtCwd(_ context.Context, c *Call) error {
	args, err := c.positional(1, -1)
	if err != nil {
		return err
	}
	c.Println(c.Path(filepath.Join(args...)))
	return nil
}

func runRelativePath(_ context.Context, c *Call) error {
	args, err := c.positional(2, 2)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(c.Path(args[1]), c.Path(args[0]))
	if err != nil {
		return err
	}
	c.Println(rel)
	return nil
}

func runCreateTempFile(_ context.Context, c *Call) error {
	flags := c.Flags()
	dir := flags.String("dir", "", "directory of the file (default: the system temp dir)")
	prefix := flags.String("prefix", "pmake-", "file name prefix")
	suffix := flags.String("suffix", "", "file name suffix")
	if _, err := c.Parse(flags, 0, 0); err != nil {
		return err
	}
	if *dir != "" {
		*dir = c.Path(*dir)
	}
	f, err := os.CreateTemp(*dir, *prefix+"*"+*suffix)
	if err != nil {
		return err
	}
	c.Println(f.Name())
	return f.Close()
}

func runCreateTempDirectory(ctx context.Context, c *Call) error {
	flags := c.Flags()
	prefix := flags.String("prefix", "pmake-", "directory name prefix")
	if _, err := c.Parse(flags, 0, 0); err != nil {
		return err
	}
	// mktemp prints the created path.
	return c.coreRun(ctx, mktemp.New(), "-d", "-p", os.TempDir(), *prefix+"XXXXXX")
}

func runAllowExecution(ctx context.Context, c *Call) error {
	args, err := c.positional(1, 1)
	if err != nil {
		return err
	}
	return c.coreRun(ctx, chmod.New(), "+x", c.Path(args[0]))
}

func runDownloadURL(ctx context.Context, c *Call) error {
	flags := c.Flags()
	force := flags.Bool("force", false, "download even when the destination exists")
	args, err := c.Parse(flags, 1, 2)
	if err != nil {
		return err
	}
	url := args[0]
	dst := ""
	if len(args) == 2 {
		dst = c.Path(args[1])
	} else {
		dst = c.Path(filepath.Base(strings.TrimRight(url, "/")))
	}
	if _, exists := statOf(dst); exists && !*force {
		c.Println(dst)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return c.usageError(err.Error())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".pmake-download-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	c.Println(dst)
	return nil
}
