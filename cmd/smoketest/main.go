package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/myrjola/runplan/internal/e2etest"
	"github.com/myrjola/runplan/internal/logging"
	"github.com/myrjola/runplan/internal/testhelpers"
)

// TestPages checks that the pages a new visitor walks through render. It never starts a plan so that it is safe
// against a live database.
func TestPages(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	if doc.Find("#start-onboarding").Length() == 0 && doc.Find("#progress").Length() == 0 {
		return fmt.Errorf("home shows neither a plan nor the onboarding link")
	}

	if doc, err = client.GetDoc(ctx, "/onboarding"); err != nil {
		return fmt.Errorf("get onboarding: %w", err)
	}
	form, err := e2etest.FindForm(doc, "/onboarding")
	if err != nil {
		return fmt.Errorf("find onboarding form: %w", err)
	}
	if _, err = e2etest.FillForm(form, map[string]string{"Goal": "improve_5k", "Start date": "2030-01-07"}); err != nil {
		return fmt.Errorf("fill onboarding form: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestPages(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing pages", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
