// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableErrorError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{name: "operation only", err: &ActionableError{Operation: "run PMakefile"}, want: "failed to run PMakefile"},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "open cache", Resource: "/tmp/c.json"},
			want: "failed to open cache: /tmp/c.json",
		},
		{
			name: "with cause",
			err:  &ActionableError{Operation: "open cache", Resource: "/tmp/c.json", Cause: errors.New("locked")},
			want: "failed to open cache: /tmp/c.json: locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableErrorUnwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("root")
	err := error(&ActionableError{Operation: "x", Cause: fmt.Errorf("mid: %w", sentinel)})
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should see through ActionableError")
	}

	var ae *ActionableError
	if !errors.As(fmt.Errorf("outer: %w", err), &ae) || ae.Operation != "x" {
		t.Error("errors.As should find the ActionableError")
	}
}

func TestActionableErrorFormat(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("load PMakefile").
		WithResource("./PMakefile").
		WithSuggestion("Create one").
		WithSuggestions("Or pass -f", "Or pass -s").
		Wrap(fmt.Errorf("open: %w", errors.New("no such file"))).
		Build()

	plain := err.Format(false)
	for _, want := range []string{"failed to load PMakefile: ./PMakefile", "  • Create one", "  • Or pass -s"} {
		if !strings.Contains(plain, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, plain)
		}
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "1. open: no such file") || !strings.Contains(verbose, "2. no such file") {
		t.Errorf("Format(true) chain missing:\n%s", verbose)
	}
}

func TestErrorContextBuild(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want untyped nil", err)
	}

	ae := NewErrorContext().WithOperation("detect platform").WithIssue(UnsupportedPlatformId).Build()
	if len(ae.Suggestions) != 0 {
		t.Errorf("Suggestions = %v, want none", ae.Suggestions)
	}
	if ae.Issue() == nil || ae.Issue().Id() != UnsupportedPlatformId {
		t.Errorf("Issue() = %v", ae.Issue())
	}
	if (&ActionableError{Operation: "x"}).Issue() != nil {
		t.Error("Issue() without IssueID should be nil")
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
	cause := errors.New("boom")
	ae := WrapWithContext(cause, "flush cache", "c.json")
	if ae.Operation != "flush cache" || ae.Resource != "c.json" || !errors.Is(ae, cause) {
		t.Errorf("WrapWithContext() = %+v", ae)
	}
}
