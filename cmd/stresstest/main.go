package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/runplan/internal/e2etest"
	"github.com/myrjola/runplan/internal/logging"
	"github.com/myrjola/runplan/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	scenarioTimeout         = 30 * time.Second
	maxConcurrentOperations = 20
	numVisitors             = 50
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
)

var (
	goals    = []string{"run_consistently", "improve_5k", "improve_10k", "half_marathon"}
	weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
)

// OnboardingScenario walks a fresh visitor through onboarding up to the review page. Every visitor has an own
// session, so the drafts exercise the session store without touching the active plan.
func OnboardingScenario(ctx context.Context, url string, visitor int, logger *slog.Logger) error {
	client, err := e2etest.NewClient(url)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if _, err = client.GetDoc(ctx, "/"); err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	doc, err := client.GetDoc(ctx, "/onboarding")
	if err != nil {
		return fmt.Errorf("get onboarding: %w", err)
	}

	fields := map[string]string{
		"Goal":             goals[visitor%len(goals)],
		"Start date":       time.Now().AddDate(0, 0, visitor%7).Format(time.DateOnly), //nolint:mnd // one week.
		"5K personal best": fmt.Sprintf("%d:%02d", 20+visitor%10, visitor%60),         //nolint:mnd // 20-29 minutes.
	}
	for i, day := range weekdays {
		fields[day] = ""
		if (visitor+i)%2 == 0 {
			fields[day] = "on"
		}
	}
	if doc, err = client.SubmitForm(ctx, doc, "/onboarding", fields); err != nil {
		return fmt.Errorf("submit onboarding: %w", err)
	}
	if doc.Url.Path != "/onboarding/review" {
		return fmt.Errorf("expected review page, got %s", doc.Url.Path)
	}
	if n := doc.Find(".run").Length(); n == 0 {
		return fmt.Errorf("review shows no runs")
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Scenario completed",
		slog.Int("visitor", visitor),
		slog.String("plan", strings.TrimSpace(doc.Find("h1").Text())))
	return nil
}

// BrowseScenario reads the home page and, when a plan is active, the details of every listed run.
func BrowseScenario(ctx context.Context, client *e2etest.Client) error {
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	var paths []string
	doc.Find("li.run[data-run-id]").Each(func(_ int, s *goquery.Selection) {
		paths = append(paths, "/runs/"+s.AttrOr("data-run-id", ""))
	})
	for _, path := range paths {
		if _, err = client.GetDoc(ctx, path); err != nil {
			return fmt.Errorf("get %s: %w", path, err)
		}
	}
	return nil
}

// RunLoadTest runs the scenarios concurrently and fails when too many of them fail.
func RunLoadTest(ctx context.Context, url string, client *e2etest.Client, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_visitors", numVisitors))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for visitor := range numVisitors {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			err := OnboardingScenario(scenarioCtx, url, visitor, logger)
			if err == nil && visitor%5 == 0 { //nolint:mnd // every fifth visitor also browses.
				err = BrowseScenario(scenarioCtx, client)
			}
			if err != nil {
				failureCount.Add(1)
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("visitor", visitor),
					slog.Any("error", err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(numVisitors) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client, err := e2etest.NewClient(url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	if err = RunLoadTest(ctx, url, client, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)))
}
