package main

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/runplan/internal/e2etest"
	"github.com/myrjola/runplan/internal/testhelpers"
)

func Test_application_onboarding(t *testing.T) {
	var (
		ctx = t.Context()
		doc *goquery.Document
	)
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	t.Run("Review requires a draft", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, "/onboarding/review")
		if err != nil {
			t.Fatalf("Failed to get review: %v", err)
		}
		if got := doc.Url.Path; got != "/onboarding" {
			t.Errorf("Expected redirect to /onboarding, got %s", got)
		}
	})

	t.Run("Shows defaults", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, "/onboarding")
		if err != nil {
			t.Fatalf("Failed to get onboarding: %v", err)
		}
		var checked []string
		doc.Find(`input[name="weekday"][checked]`).Each(func(_ int, s *goquery.Selection) {
			checked = append(checked, s.AttrOr("value", ""))
		})
		if got, want := strings.Join(checked, ","), "mon,wed,fri"; got != want {
			t.Errorf("Expected default days %s, got %s", want, got)
		}
		if n := doc.Find(`select[name="plan"] option`).Length(); n != 4 {
			t.Errorf("Expected the recommended option and three plans, got %d options", n)
		}
	})

	t.Run("Review previews the plan", func(t *testing.T) {
		doc, err = client.SubmitForm(ctx, doc, "/onboarding", map[string]string{
			"Goal":             "half_marathon",
			"Monday":           "",
			"Wednesday":        "",
			"Friday":           "",
			"Tuesday":          "on",
			"Thursday":         "on",
			"Start date":       "2030-01-07",
			"5K personal best": "24:30",
		})
		if err != nil {
			t.Fatalf("Failed to submit onboarding: %v", err)
		}
		if got := doc.Url.Path; got != "/onboarding/review" {
			t.Fatalf("Expected review page, got %s", got)
		}
		if got := strings.TrimSpace(doc.Find("h1").Text()); got != "10K improver" {
			t.Errorf("Expected recommended plan 10K improver, got %q", got)
		}
		if got := strings.TrimSpace(doc.Find("#review-goal").Text()); got != "Run a half marathon" {
			t.Errorf("Unexpected goal %q", got)
		}
		if got := strings.TrimSpace(doc.Find("#review-start").Text()); got != "2030-01-07" {
			t.Errorf("Unexpected start date %q", got)
		}
		// Four weekly sessions on two days wrap into the following calendar week.
		if n := doc.Find(".run").Length(); n != 24 {
			t.Errorf("Expected 24 runs, got %d", n)
		}
		if n := doc.Find(".week").Length(); n != 12 {
			t.Errorf("Expected 12 calendar weeks, got %d", n)
		}
	})

	t.Run("Going back keeps the draft", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, "/onboarding")
		if err != nil {
			t.Fatalf("Failed to get onboarding: %v", err)
		}
		if got := doc.Find(`select[name="goal"] option[selected]`).AttrOr("value", ""); got != "half_marathon" {
			t.Errorf("Expected goal from draft, got %q", got)
		}
		if got := doc.Find(`input[name="pb_5k"]`).AttrOr("value", ""); got != "24:30" {
			t.Errorf("Expected 5K personal best from draft, got %q", got)
		}
	})

	t.Run("Confirm starts the plan", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, "/onboarding/review")
		if err != nil {
			t.Fatalf("Failed to get review: %v", err)
		}
		doc, err = client.SubmitForm(ctx, doc, "/onboarding/confirm", nil)
		if err != nil {
			t.Fatalf("Failed to confirm: %v", err)
		}
		if got := doc.Url.Path; got != "/" {
			t.Fatalf("Expected home page, got %s", got)
		}
		if got := strings.TrimSpace(doc.Find("#progress").Text()); got != "0 completed, 0 skipped of 24 runs" {
			t.Errorf("Unexpected progress %q", got)
		}

		// The draft is gone once the plan is started.
		doc, err = client.GetDoc(ctx, "/onboarding/review")
		if err != nil {
			t.Fatalf("Failed to get review: %v", err)
		}
		if got := doc.Url.Path; got != "/onboarding" {
			t.Errorf("Expected redirect to /onboarding after confirm, got %s", got)
		}
	})
}

func Test_application_onboarding_invalidInput(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	tests := []struct {
		name    string
		form    url.Values
		problem string
	}{
		{
			name:    "no running days",
			form:    url.Values{"goal": {"improve_5k"}},
			problem: "Select at least one running day.",
		},
		{
			name:    "unsupported goal",
			form:    url.Values{"goal": {"couch_to_sofa"}, "weekday": {"mon"}},
			problem: "Choose one of the listed goals.",
		},
		{
			name:    "unknown plan",
			form:    url.Values{"goal": {"improve_5k"}, "plan": {"marathon"}, "weekday": {"mon"}},
			problem: "Choose one of the listed plans.",
		},
		{
			name:    "unknown weekday",
			form:    url.Values{"goal": {"improve_5k"}, "weekday": {"someday"}},
			problem: "Choose running days from the list.",
		},
		{
			name:    "malformed start date",
			form:    url.Values{"goal": {"improve_5k"}, "weekday": {"mon"}, "start_date": {"07.01.2030"}},
			problem: "Enter the start date as YYYY-MM-DD.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.PostForm(ctx, "/onboarding", tt.form)
			if err != nil {
				t.Fatalf("Failed to post onboarding: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("Expected status %d, got %d", http.StatusUnprocessableEntity, resp.StatusCode)
			}
			doc, err := goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				t.Fatalf("Failed to parse document: %v", err)
			}
			if got := doc.Find(".problems").Text(); !strings.Contains(got, tt.problem) {
				t.Errorf("Expected problem %q, got %q", tt.problem, got)
			}
		})
	}
}
