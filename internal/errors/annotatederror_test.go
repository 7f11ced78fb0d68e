package errors_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/myrjola/runplan/internal/errors"
	"github.com/myrjola/runplan/internal/testhelpers"
)

var errNoWeekdays = errors.NewSentinel("no weekdays selected")

func TestAnnotatedError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "sentinel",
			err:  errNoWeekdays,
			want: "no weekdays selected",
		},
		{
			name: "wrapped with attributes",
			err:  errors.Wrap(errNoWeekdays, "generate plan", slog.String("archetype", "base_builder")),
			want: "generate plan: no weekdays selected",
		},
		{
			name: "wrapped twice",
			err:  errors.Wrap(errors.Wrap(errNoWeekdays, "generate plan"), "onboarding"),
			want: "onboarding: generate plan: no weekdays selected",
		},
		{
			name: "new without cause",
			err:  errors.New("catalog is empty"),
			want: "catalog is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap_nil(t *testing.T) {
	if err := errors.Wrap(nil, "nothing to wrap"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestIsAndUnwrap(t *testing.T) {
	wrapped := errors.Wrap(errNoWeekdays, "regenerate plan")

	if !errors.Is(wrapped, errNoWeekdays) {
		t.Error("Is() = false, want true for wrapped sentinel")
	}
	if errors.Is(wrapped, errors.NewSentinel("no weekdays selected")) {
		t.Error("Is() = true, want false for a different sentinel with the same message")
	}
	if got := errors.Unwrap(wrapped); got != errNoWeekdays { //nolint:errorlint // identity check.
		t.Errorf("Unwrap() = %v, want %v", got, errNoWeekdays)
	}
	if got := errors.Unwrap(errNoWeekdays); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAs(t *testing.T) {
	root := &storeError{table: "scheduled_runs"}
	wrapped := errors.Wrap(fmt.Errorf("save plan: %w", root), "start plan")

	var target *storeError
	if !errors.As(wrapped, &target) {
		t.Fatal("As() = false, want true")
	}
	if target != root {
		t.Errorf("As() target = %v, want %v", target, root)
	}
}

func TestSlogError(t *testing.T) {
	err := errors.Wrap(
		errors.Wrap(errNoWeekdays, "layout runs", slog.Int("templates", 12)),
		"generate plan", slog.String("archetype", "ten_k_improver"),
	)
	var buf bytes.Buffer
	logger := testhelpers.NewLogger(&buf)
	logger.Info("test", errors.SlogError(err))
	logLine := buf.String()

	for _, want := range []string{
		`error.message="generate plan: layout runs: no weekdays selected"`,
		"error.annotations.archetype=ten_k_improver",
		"error.annotations.templates=12",
		"annotatederror_test.go:",
	} {
		if !strings.Contains(logLine, want) {
			t.Errorf("expected log line %s to contain %s", logLine, want)
		}
	}
	if strings.Contains(logLine, "annotatederror.go") {
		t.Fatal("expected annotatederror.go NOT to be in log line")
	}

	// None of these may panic.
	errors.SlogError(nil)
	errors.SlogError(errors.Join(nil, errNoWeekdays, errors.New("test")))
	errors.SlogError(fmt.Errorf("test: %w", errNoWeekdays))
	errors.SlogError(errors.Wrap(errors.Join(nil, nil), "wrap error"))
}

func TestDecoratePanic(t *testing.T) {
	defer func() {
		err := errors.DecoratePanic(recover())
		if err == nil {
			t.Fatal("expected error")
		}
		if got, want := err.Error(), "panic: week out of range"; got != want {
			t.Errorf("err.Error(): got %q, want %q", got, want)
		}
		if got := errors.SlogError(err).String(); !strings.Contains(got, "annotatederror_test.go:") {
			t.Errorf("expected %q to point at the panicking test file", got)
		}
	}()
	panic("week out of range")
}

type storeError struct {
	table string
}

func (e *storeError) Error() string {
	return "constraint failed on " + e.table
}
