// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pmake/pmake/pkg/interesting"
)

// scanner walks rules and collects the matching installations.
type scanner struct {
	rules        []Rule
	architecture interesting.Architecture
	getenv       func(string) string
	logger       *slog.Logger
	// skip, when set, drops entries by base name before matching.
	skip func(name string) bool
}

// scan applies every rule in order. Roots are visited in rule order and
// their children in name order, so equal versions always tie-break the same
// way. Names without any installation are left out of the result.
func (s *scanner) scan(ctx context.Context) (map[string][]interesting.InterestingPath, error) {
	out := make(map[string][]interesting.InterestingPath)
	for _, rule := range s.rules {
		for _, rawRoot := range rule.Roots {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			root := expandRoot(rawRoot, s.getenv)
			if root == "" {
				continue
			}

			found, err := s.scanRoot(rule, root)
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				out[rule.Name] = append(out[rule.Name], found...)
			}
		}
	}
	return out, nil
}

func (s *scanner) scanRoot(rule Rule, root string) ([]interesting.InterestingPath, error) {
	entries, err := os.ReadDir(root)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case errors.Is(err, fs.ErrPermission):
		s.logger.Debug("skipping unreadable root", "rule", rule.Name, "root", root, "error", err)
		return nil, nil
	default:
		return nil, fmt.Errorf("scan %s for %s: %w", root, rule.Name, err)
	}

	var found []interesting.InterestingPath
	for _, entry := range entries {
		name := entry.Name()
		if s.skip != nil && s.skip(name) {
			continue
		}
		if !rule.Pattern.MatchString(name) {
			continue
		}

		full := filepath.Join(root, name)
		// Stat follows symlinks.
		info, err := os.Stat(full)
		if err != nil || !info.IsDir() {
			continue
		}

		version, err := versionOf(rule.Pattern, name)
		if err != nil {
			s.logger.Debug("skipping installation with unparseable version", "rule", rule.Name, "path", full, "error", err)
			continue
		}

		arch := rule.Architecture
		if arch == 0 {
			arch = inferArchitecture(name, root, s.architecture)
		}

		p, err := interesting.NewInterestingPath(rule.Name, full, arch, version.String())
		if err != nil {
			s.logger.Debug("skipping invalid installation", "rule", rule.Name, "path", full, "error", err)
			continue
		}
		found = append(found, p)
	}
	return found, nil
}
