// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pmake/pmake/pkg/interesting"
)

var (
	arch64Token = regexp.MustCompile(`(?i)(amd64|x86[-_]64|x64|aarch64|arm64|win64|64[-_ ]?bit|[-_]64$)`)
	arch32Token = regexp.MustCompile(`(?i)(i[3-6]86|x86|win32|32[-_ ]?bit|[-_]32$)`)
	x86Root     = regexp.MustCompile(`(?i)\(x86\)`)
)

type (
	// Rule recognizes the installations of one tool.
	Rule struct {
		// Name is the logical name the installations are filed under.
		Name string
		// Roots are scanned in order. Environment references ($VAR, ${VAR})
		// are expanded at scan time; roots that do not exist are skipped.
		Roots []string
		// Pattern must match the base name of an installation folder. The
		// version comes from the "version" group, or from the "major",
		// "minor" and "patch" groups, or from interesting.ExtractVersion.
		Pattern *regexp.Regexp
		// Architecture forces the architecture of every match. Zero means
		// infer it from the folder name, then from the root.
		Architecture interesting.Architecture
	}

	// RuleSpec is the uncompiled form of a Rule, as read from configuration.
	RuleSpec struct {
		Name         string
		Roots        []string
		Pattern      string
		Architecture int
	}
)

// CompileRule validates rs and compiles its pattern.
func CompileRule(rs RuleSpec) (Rule, error) {
	if strings.TrimSpace(rs.Name) == "" {
		return Rule{}, &InvalidRuleError{Name: rs.Name, Reason: "name must not be empty"}
	}
	if len(rs.Roots) == 0 {
		return Rule{}, &InvalidRuleError{Name: rs.Name, Reason: "at least one root is required"}
	}
	re, err := regexp.Compile(rs.Pattern)
	if err != nil {
		return Rule{}, &InvalidRuleError{Name: rs.Name, Reason: err.Error()}
	}
	arch := interesting.Architecture(rs.Architecture)
	if arch != 0 {
		if ok, _ := arch.IsValid(); !ok {
			return Rule{}, &InvalidRuleError{Name: rs.Name, Reason: fmt.Sprintf("architecture %d is not 32 or 64", rs.Architecture)}
		}
	}
	return Rule{Name: rs.Name, Roots: rs.Roots, Pattern: re, Architecture: arch}, nil
}

// CompileRules compiles every spec, stopping at the first invalid one.
func CompileRules(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		r, err := CompileRule(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// DefaultPOSIXRules returns the built-in rules of the POSIX probe.
func DefaultPOSIXRules() []Rule {
	return []Rule{
		{
			Name:    "jdk",
			Roots:   []string{"/usr/lib/jvm", "/usr/java", "/opt/java", "/Library/Java/JavaVirtualMachines"},
			Pattern: regexp.MustCompile(`^(?:java|jdk|openjdk|temurin|zulu|adoptopenjdk)[-_]?(?:1\.)?\d`),
		},
		{
			Name:    "python",
			Roots:   []string{"/usr/lib", "/usr/local/lib"},
			Pattern: regexp.MustCompile(`^python(?P<version>\d+\.\d+)$`),
		},
		{
			Name:    "go",
			Roots:   []string{"/usr/lib", "/usr/local"},
			Pattern: regexp.MustCompile(`^go-?(?P<version>\d+\.\d+(?:\.\d+)?)$`),
		},
		{
			Name:    "cmake",
			Roots:   []string{"/opt", "/usr/share", "/usr/local/share"},
			Pattern: regexp.MustCompile(`^cmake-(?P<version>\d+\.\d+(?:\.\d+)?)`),
		},
		{
			Name:    "qt",
			Roots:   []string{"/opt/Qt", "$HOME/Qt"},
			Pattern: regexp.MustCompile(`^(?P<version>\d+\.\d+(?:\.\d+)?)$`),
		},
	}
}

// DefaultWindowsRules returns the built-in rules of the Windows probe.
func DefaultWindowsRules() []Rule {
	return []Rule{
		{
			Name:    "jdk",
			Roots:   []string{`${ProgramFiles}\Java`, `${ProgramFiles(x86)}\Java`},
			Pattern: regexp.MustCompile(`(?i)^(?:jdk|jre)[-_]?(?:1\.)?(?P<version>\d+(?:\.\d+){0,2})`),
		},
		{
			Name:    "python",
			Roots:   []string{`${LOCALAPPDATA}\Programs\Python`, `${ProgramFiles}`, `${ProgramFiles(x86)}`},
			Pattern: regexp.MustCompile(`(?i)^python(?P<major>\d)(?P<minor>\d+)(?:-32)?$`),
		},
		{
			Name:    "cmake",
			Roots:   []string{`${ProgramFiles}`, `${ProgramFiles(x86)}`},
			Pattern: regexp.MustCompile(`(?i)^cmake[-_ ]?(?P<version>\d+\.\d+(?:\.\d+)?)`),
		},
		{
			Name:    "visual-studio",
			Roots:   []string{`${ProgramFiles}\Microsoft Visual Studio`, `${ProgramFiles(x86)}\Microsoft Visual Studio`},
			Pattern: regexp.MustCompile(`^(?P<version>20\d\d)$`),
		},
	}
}

// versionOf extracts the version carried by a base name matched by re.
func versionOf(re *regexp.Regexp, name string) (interesting.VersionTag, error) {
	m := re.FindStringSubmatch(name)
	if m == nil {
		return interesting.VersionTag{}, &interesting.MalformedVersionError{Value: name, Reason: "name does not match rule"}
	}

	group := func(g string) string {
		if i := re.SubexpIndex(g); i > 0 {
			return m[i]
		}
		return ""
	}

	if v := group("version"); v != "" {
		return interesting.ParseVersion(v)
	}
	if major := group("major"); major != "" {
		raw := major
		for _, g := range []string{"minor", "patch"} {
			part := group(g)
			if part == "" {
				break
			}
			raw += "." + part
		}
		return interesting.ParseVersion(raw)
	}
	return interesting.ExtractVersion(name)
}

// inferArchitecture derives the architecture of an installation from its
// folder name, then its root, then the fallback.
func inferArchitecture(name, root string, fallback interesting.Architecture) interesting.Architecture {
	switch {
	case arch64Token.MatchString(name):
		return interesting.Arch64
	case arch32Token.MatchString(name):
		return interesting.Arch32
	case x86Root.MatchString(root):
		return interesting.Arch32
	default:
		return fallback
	}
}

// expandRoot resolves $VAR and ${VAR} references through getenv. A root
// referencing an unset variable expands to "" and is skipped.
func expandRoot(root string, getenv func(string) string) string {
	unset := false
	expanded := os.Expand(root, func(key string) string {
		v := getenv(key)
		if v == "" {
			unset = true
		}
		return v
	})
	if unset {
		return ""
	}
	return expanded
}
