package model

import (
	"errors"
	"testing"
	"time"
)

func TestRunFinalDocument(t *testing.T) {
	t.Parallel()

	r := NewRun("https://x.test/")
	r.Document = "# core"
	if r.FinalDocument() != "# core" || r.IsEnhanced() {
		t.Errorf("expected core document, got %q", r.FinalDocument())
	}

	r.Enhanced = "# enhanced"
	if r.FinalDocument() != "# enhanced" || !r.IsEnhanced() {
		t.Errorf("expected enhanced document, got %q", r.FinalDocument())
	}
}

func TestRunSetError(t *testing.T) {
	t.Parallel()

	r := NewRun("https://x.test/")
	r.SetError(errors.New("boom"))
	if r.ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q, want boom", r.ErrorMessage)
	}

	r.SetError(nil)
	if r.Error != nil {
		t.Errorf("Error = %v, want nil", r.Error)
	}
}

func TestRunDuration(t *testing.T) {
	t.Parallel()

	r := NewRun("https://x.test/")
	if r.Duration() != 0 {
		t.Errorf("Duration() = %v before finish, want 0", r.Duration())
	}
	r.FinishedAt = r.StartedAt.Add(3 * time.Second)
	if r.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", r.Duration())
	}

	r.AddPerformedStep("crawl")
	if len(r.PerformedSteps) != 1 || r.PerformedSteps[0] != "crawl" {
		t.Errorf("PerformedSteps = %v", r.PerformedSteps)
	}
}

func TestCrawlStatsFailures(t *testing.T) {
	t.Parallel()

	s := CrawlStats{FetchFailed: 2, StatusSkipped: 3}
	if s.Failures() != 5 {
		t.Errorf("Failures() = %d, want 5", s.Failures())
	}
}
