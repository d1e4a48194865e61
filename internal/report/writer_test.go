package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/llmsgen/internal/model"
)

// createTestSiteMap creates a site map with two sections.
func createTestSiteMap() *model.SiteMap {
	return &model.SiteMap{
		Title:       "Example",
		Summary:     "Site map of Example (https://x.test/), auto-generated for LLM context.",
		Origin:      "https://x.test/",
		GeneratedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Sections: []model.Section{
			{Key: model.HomeSection, Name: "Home", Pages: []model.Page{
				{URL: "https://x.test/", Title: "Welcome"},
			}},
			{Key: "docs", Name: "Docs", Pages: []model.Page{
				{URL: "https://x.test/docs", Title: "Docs", Description: "All documentation"},
				{URL: "https://x.test/docs/install", Title: "Install"},
			}},
		},
	}
}

// createTestRun creates a run carrying the test site map.
func createTestRun() *model.Run {
	sm := createTestSiteMap()
	run := model.NewRun("https://x.test/")
	run.SiteName = "Example"
	run.SiteMap = sm
	run.Pages = []model.Page{sm.Sections[0].Pages[0], sm.Sections[1].Pages[0], sm.Sections[1].Pages[1]}
	run.Stats = model.CrawlStats{Fetched: 3, StatusSkipped: 1, ScopeRejected: 4, StopReason: model.StopQueueExhausted}
	run.FinishedAt = run.StartedAt.Add(1500 * time.Millisecond)
	return run
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders the llms.txt layout", func(t *testing.T) {
		t.Parallel()

		got := Render(createTestSiteMap())
		want := "# Example\n" +
			"\n" +
			"> Site map of Example (https://x.test/), auto-generated for LLM context.\n" +
			"\n" +
			"## Home\n" +
			"\n" +
			"- [Welcome](https://x.test/)\n" +
			"\n" +
			"## Docs\n" +
			"\n" +
			"- [Docs](https://x.test/docs)\n" +
			"- [Install](https://x.test/docs/install)\n"
		if got != want {
			t.Errorf("Render() mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
		}
	})

	t.Run("adds descriptions when enabled", func(t *testing.T) {
		t.Parallel()

		got := Render(createTestSiteMap(), WithDescriptions(true))
		if !strings.Contains(got, "- [Docs](https://x.test/docs): All documentation\n") {
			t.Errorf("expected description suffix, got:\n%s", got)
		}
		if strings.Contains(got, "[Install](https://x.test/docs/install):") {
			t.Error("page without description should have no suffix")
		}
	})

	t.Run("only H1 and H2 headings", func(t *testing.T) {
		t.Parallel()

		got := Render(createTestSiteMap())
		h1 := 0
		for _, line := range strings.Split(got, "\n") {
			if strings.HasPrefix(line, "###") {
				t.Errorf("unexpected deep heading %q", line)
			}
			if strings.HasPrefix(line, "# ") {
				h1++
			}
		}
		if h1 != 1 || !strings.HasPrefix(got, "# ") {
			t.Errorf("expected a single leading H1, found %d", h1)
		}
	})

	t.Run("escapes link text and awkward URLs", func(t *testing.T) {
		t.Parallel()

		sm := createTestSiteMap()
		sm.Sections[0].Pages[0] = model.Page{URL: "https://x.test/wiki/Go_(language)", Title: "Go [lang]"}
		got := Render(sm)
		if !strings.Contains(got, `- [Go \[lang\]](<https://x.test/wiki/Go_(language)>)`) {
			t.Errorf("expected escaped link, got:\n%s", got)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		sm := createTestSiteMap()
		if Render(sm) != Render(sm) {
			t.Error("rendering twice produced different output")
		}
	})

	t.Run("empty site map has title and summary only", func(t *testing.T) {
		t.Parallel()

		sm := &model.SiteMap{Title: "Empty", Summary: "Nothing here."}
		got := Render(sm)
		if got != "# Empty\n\n> Nothing here.\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("Write prefers the enhanced document", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Document = "# core\n"
		run.Enhanced = "# enhanced\n"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if buf.String() != "# enhanced\n" {
			t.Errorf("got %q", buf.String())
		}
	})

	t.Run("WithFromSiteMap ignores stored documents", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Enhanced = "# enhanced\n"

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithFromSiteMap(), WithDescriptions(true)).Write(run); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.HasPrefix(buf.String(), "# Example\n") || !strings.Contains(buf.String(), ": All documentation") {
			t.Errorf("expected rendered site map with descriptions, got %q", buf.String())
		}
	})

	t.Run("Write renders the site map when no document exists", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestRun())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() || !strings.HasPrefix(buf.String(), "# Example\n") {
			t.Errorf("unexpected output (%d bytes): %q", n, buf.String())
		}
	})

	t.Run("Write fails without site map", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewMarkdownWriter(&buf).Write(model.NewRun("https://x.test/"))
		if !errors.Is(err, ErrNoSiteMap) {
			t.Errorf("Write() error = %v, want ErrNoSiteMap", err)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
			t.Errorf("expected single-line JSON with trailing newline, got %q", out)
		}

		var decoded model.Run
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.SiteMap == nil || decoded.SiteMap.PageCount() != 3 {
			t.Errorf("site map not preserved: %+v", decoded.SiteMap)
		}
		if decoded.Stats.StopReason != model.StopQueueExhausted {
			t.Errorf("StopReason = %q", decoded.Stats.StopReason)
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestRun()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"origin\": \"https://x.test/\"") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}
	})
}

func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestRun()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded struct {
		Version string     `json:"version"`
		Run     *model.Run `json:"run"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Version != "v1.2.3" || decoded.Run == nil || decoded.Run.Origin != "https://x.test/" {
		t.Errorf("unexpected wrapper: %+v", decoded)
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("summarizes a run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"LLMSGEN SUMMARY",
			"Origin:       https://x.test/",
			"Pages:        3",
			"Duration:     1.5s",
			"Status:       Complete",
			"Enhancement:  skipped",
			"SECTIONS",
			"CRAWL STATISTICS",
			"Non-200 skipped: 1",
			"all reachable pages visited",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q\n%s", want, out)
			}
		}
		if strings.Contains(out, "https://x.test/docs/install") {
			t.Error("page URLs should only be listed in verbose mode")
		}
	})

	t.Run("verbose lists pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestRun()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "- https://x.test/docs/install") {
			t.Errorf("expected page listing, got:\n%s", buf.String())
		}
	})

	t.Run("reports interruption and enhancement failure", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.TimedOut = true
		run.EnhanceError = "quota exceeded"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "INTERRUPTED") {
			t.Error("expected interrupted status")
		}
		if !strings.Contains(out, "failed, core document kept (quota exceeded)") {
			t.Errorf("expected enhancement failure, got:\n%s", out)
		}
	})

	t.Run("empty run hides empty sections", func(t *testing.T) {
		t.Parallel()

		run := model.NewRun("https://x.test/")
		run.SiteMap = &model.SiteMap{}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if strings.Contains(buf.String(), "SECTIONS") {
			t.Error("empty sections block should be hidden")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(run); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No pages recorded") {
			t.Error("expected empty marker with show-empty")
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var md, js bytes.Buffer
	n, err := NewMultiWriter(NewMarkdownWriter(&md), NewJSONWriter(&js)).Write(createTestRun())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if md.Len() == 0 || js.Len() == 0 {
		t.Error("expected output from every writer")
	}
	if n != md.Len()+js.Len() {
		t.Errorf("n = %d, want %d", n, md.Len()+js.Len())
	}
}

func TestMultiWriterStopsOnError(t *testing.T) {
	t.Parallel()

	var js bytes.Buffer
	_, err := NewMultiWriter(NewMarkdownWriter(&bytes.Buffer{}), NewJSONWriter(&js)).Write(model.NewRun("https://x.test/"))
	if !errors.Is(err, ErrNoSiteMap) {
		t.Fatalf("Write() error = %v, want ErrNoSiteMap", err)
	}
	if js.Len() != 0 {
		t.Error("writers after a failure must not run")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "exactly10!", max: 10, want: "exactly10!"},
		{in: "this is too long", max: 10, want: "this is..."},
		{in: "abcdef", max: 2, want: "ab"},
	}

	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
