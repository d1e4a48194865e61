package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/llmsgen/internal/config"
	"github.com/nao1215/llmsgen/internal/database"
)

// testPages is a small site: a home page, an about page and two docs pages.
var testPages = map[string]string{
	"/": `<html><head><title>Home</title></head><body>
<a href="/about">About</a> <a href="/docs/intro">Intro</a> <a href="/docs/setup">Setup</a>
<a href="/files/manual.pdf">Manual</a> <a href="https://other.example/">Elsewhere</a></body></html>`,
	"/about":      `<html><head><title>About Us</title><meta name="description" content="Who we are"></head><body><a href="/docs/intro">Intro</a></body></html>`,
	"/docs/intro": `<html><head><title>Intro</title></head><body><a href="/docs/setup">Setup</a></body></html>`,
	"/docs/setup": `<html><head><title>Setup</title></head><body></body></html>`,
}

// newTestSite starts a server serving pages.
func newTestSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// emptyConfigFile writes an empty configuration file so tests never pick
// up a .llmsgen.yaml from the working or home directory.
func emptyConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".llmsgen.yaml")
	if err := os.WriteFile(path, []byte("sites: {}\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// executeCommand runs the root command with args and returns what it
// printed to stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// generateArgs returns the flags every generate test uses.
func generateArgs(t *testing.T, extra ...string) []string {
	t.Helper()
	args := []string{
		"generate",
		"-c", emptyConfigFile(t),
		"--delay", "0",
		"--timeout", "5s",
		"--db-dir", t.TempDir(),
	}
	return append(args, extra...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(b)
}

// TestNewGenerateCmd tests the generate command creation.
func TestNewGenerateCmd(t *testing.T) {
	t.Parallel()

	cmd := NewGenerateCmd()

	if cmd.Use != "generate [url]..." {
		t.Errorf("expected use 'generate [url]...', got %q", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("expected non-empty descriptions")
	}

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"name", "n", ""},
		{"max-pages", "p", "150"},
		{"delay", "d", "200ms"},
		{"timeout", "t", "10s"},
		{"workers", "w", "1"},
		{"batch", "b", "4"},
		{"exclude", "", "[]"},
		{"user-agent", "", config.DefaultUserAgent},
		{"max-body-size", "", "5242880"},
		{"proxy", "", ""},
		{"output-dir", "o", "."},
		{"stdout", "", "false"},
		{"full", "", "false"},
		{"json", "j", "false"},
		{"descriptions", "", "false"},
		{"skip-enhance", "", "false"},
		{"model", "", config.DefaultEnhanceModel},
		{"endpoint", "", ""},
		{"enhance-timeout", "", "2m0s"},
		{"api-key-env", "", "GOOGLE_API_KEY"},
		{"prompt-file", "", ""},
		{"save", "s", "false"},
		{"config", "c", ""},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		if err := cmd.ParseFlags([]string{"-c", emptyConfigFile(t)}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"HTTPS://Example.COM/docs#top"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Origins) != 1 || cfg.Origins[0] != "https://example.com/docs" {
			t.Errorf("Origins = %v", cfg.Origins)
		}
		if cfg.MaxPages != config.DefaultMaxPages || cfg.Workers != config.DefaultWorkers {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
		if cfg.ExcludeExtensions != nil {
			t.Errorf("ExcludeExtensions = %v, want nil for the built-in list", cfg.ExcludeExtensions)
		}
		if cfg.SiteConfigs == nil {
			t.Error("expected site configs")
		}
	})

	t.Run("flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		err := cmd.ParseFlags([]string{
			"-c", emptyConfigFile(t),
			"-n", "Docs", "-p", "20", "-d", "1s", "-t", "3s", "-w", "3", "-b", "2",
			"--exclude", ".pdf,.zip", "--user-agent", "bot", "--max-body-size", "1024",
			"-o", "out", "--full", "--json", "--descriptions", "--skip-enhance",
			"--model", "gemini-test", "--endpoint", "http://127.0.0.1:1", "--enhance-timeout", "5s",
			"--api-key-env", "MY_KEY", "--prompt-file", "prompt.tmpl", "--save", "--db-dir", "db",
		})
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SiteName != "Docs" || cfg.MaxPages != 20 || cfg.CrawlDelay != time.Second ||
			cfg.Timeout != 3*time.Second || cfg.Workers != 3 || cfg.BatchSize != 2 {
			t.Errorf("crawl settings not applied: %+v", cfg)
		}
		if strings.Join(cfg.ExcludeExtensions, ",") != ".pdf,.zip" || cfg.UserAgent != "bot" || cfg.MaxBodySize != 1024 {
			t.Errorf("fetch settings not applied: %+v", cfg)
		}
		if cfg.OutputDir != "out" || !cfg.WriteFull || !cfg.WriteJSON || !cfg.Descriptions {
			t.Errorf("output settings not applied: %+v", cfg)
		}
		if !cfg.SkipEnhance || cfg.EnhanceModel != "gemini-test" || cfg.EnhanceEndpoint != "http://127.0.0.1:1" ||
			cfg.EnhanceTimeout != 5*time.Second || cfg.APIKeyEnv != "MY_KEY" || cfg.PromptFile != "prompt.tmpl" {
			t.Errorf("enhancement settings not applied: %+v", cfg)
		}
		if !cfg.SaveHistory || cfg.DBDir != "db" {
			t.Errorf("history settings not applied: %+v", cfg)
		}
	})

	t.Run("invalid origin", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		if err := cmd.ParseFlags([]string{"-c", emptyConfigFile(t)}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"ftp://example.com"}); err == nil {
			t.Error("expected error for non-http origin")
		}
	})

	t.Run("duplicate origins are crawled once", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		if err := cmd.ParseFlags([]string{"-c", emptyConfigFile(t)}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com", "HTTPS://EXAMPLE.com#top", "https://example.com/docs"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://example.com", "https://example.com/docs"}
		if strings.Join(cfg.Origins, " ") != strings.Join(want, " ") {
			t.Errorf("Origins = %v, want %v", cfg.Origins, want)
		}
	})

	t.Run("explicit config file must exist", func(t *testing.T) {
		t.Parallel()

		cmd := NewGenerateCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatal(err)
		}
		_, err := buildConfig(cmd, []string{"https://example.com"})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads config file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "defaults:\n  crawlDelay: 750ms\nsites:\n  example.com:\n    name: Example Docs\n    maxPages: 40\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewGenerateCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		site := cfg.SiteConfigs.GetSiteConfig("https://example.com")
		if site.Name != "Example Docs" || site.MaxPages != 40 || site.CrawlDelay != 750*time.Millisecond {
			t.Errorf("site config = %+v", site)
		}
	})
}

func TestResolveSiteSettings(t *testing.T) {
	t.Parallel()

	newCfg := func() *config.Config {
		cfg := config.NewConfig()
		cfg.SiteConfigs = &config.File{
			Defaults: config.SiteConfig{CrawlDelay: time.Second},
			Sites: map[string]config.SiteConfig{
				"docs.example.com": {
					Name:              "Docs",
					MaxPages:          500,
					Workers:           4,
					ExcludeExtensions: []string{".pdf"},
					Cookie:            "session=abc",
					Headers:           map[string]string{"Authorization": "Bearer x"},
				},
			},
		}
		return cfg
	}
	none := func(string) bool { return false }

	t.Run("config file wins over flag defaults", func(t *testing.T) {
		t.Parallel()

		s := resolveSiteSettings(newCfg(), "https://docs.example.com", none)
		if s.name != "Docs" || s.maxPages != 500 || s.workers != 4 || s.delay != time.Second {
			t.Errorf("settings = %+v", s)
		}
		if strings.Join(s.exclude, ",") != ".pdf" {
			t.Errorf("exclude = %v", s.exclude)
		}
		if s.cookie != "session=abc" || s.headers["Authorization"] != "Bearer x" {
			t.Errorf("cookie/headers = %q %v", s.cookie, s.headers)
		}
	})

	t.Run("explicit flags win over config file", func(t *testing.T) {
		t.Parallel()

		cfg := newCfg()
		cfg.SiteName = "Flag Name"
		cfg.MaxPages = 10
		cfg.CrawlDelay = 0
		explicit := func(name string) bool {
			return name == "name" || name == "max-pages" || name == "delay"
		}
		s := resolveSiteSettings(cfg, "https://docs.example.com", explicit)
		if s.name != "Flag Name" || s.maxPages != 10 || s.delay != 0 {
			t.Errorf("settings = %+v", s)
		}
		if s.workers != 4 {
			t.Errorf("workers = %d, want 4 from the config file", s.workers)
		}
	})

	t.Run("unknown site uses defaults section", func(t *testing.T) {
		t.Parallel()

		s := resolveSiteSettings(newCfg(), "https://other.example", none)
		if s.name != "" || s.maxPages != config.DefaultMaxPages || s.delay != time.Second || s.cookie != "" {
			t.Errorf("settings = %+v", s)
		}
	})

	t.Run("no config file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		s := resolveSiteSettings(cfg, "https://example.com", none)
		if s.maxPages != config.DefaultMaxPages || s.delay != config.DefaultCrawlDelay {
			t.Errorf("settings = %+v", s)
		}
	})
}

func TestOutputDirFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		origin string
		multi  bool
		want   string
	}{
		{"single origin writes into base", "https://example.com", false, "out"},
		{"host", "https://example.com", true, filepath.Join("out", "example.com")},
		{"host and port", "http://127.0.0.1:8080", true, filepath.Join("out", "127.0.0.1_8080")},
		{"path", "https://example.com/docs/", true, filepath.Join("out", "example.com_docs")},
		{"nested path", "https://example.com/docs/v2", true, filepath.Join("out", "example.com_docs_v2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := outputDirFor("out", tt.origin, tt.multi); got != tt.want {
				t.Errorf("outputDirFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckOutputDirs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origins []string
		stdout  bool
		wantErr bool
	}{
		{"distinct hosts", []string{"https://a.example", "https://b.example"}, false, false},
		{"distinct paths", []string{"https://a.example/docs/", "https://a.example/blog/"}, false, false},
		{"trailing slash collides", []string{"https://x.test", "https://x.test/"}, false, true},
		{"single origin", []string{"https://x.test"}, false, false},
		{"stdout writes no directories", []string{"https://x.test", "https://x.test/"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			cfg.OutputDir = "out"
			cfg.Origins = tt.origins
			cfg.Stdout = tt.stdout

			err := checkOutputDirs(cfg)
			if tt.wantErr != errors.Is(err, errOutputDirConflict) {
				t.Errorf("checkOutputDirs() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Run("reads the environment", func(t *testing.T) {
		t.Setenv("LLMSGEN_TEST_API_KEY", "  secret-key \n")
		if got := resolveAPIKey("LLMSGEN_TEST_API_KEY", strings.NewReader(""), io.Discard); got != "secret-key" {
			t.Errorf("resolveAPIKey() = %q", got)
		}
	})

	t.Run("no prompt without a terminal", func(t *testing.T) {
		t.Setenv("LLMSGEN_TEST_API_KEY", "")
		var prompt bytes.Buffer
		if got := resolveAPIKey("LLMSGEN_TEST_API_KEY", strings.NewReader("typed-key\n"), &prompt); got != "" {
			t.Errorf("resolveAPIKey() = %q, want empty", got)
		}
		if prompt.Len() != 0 {
			t.Errorf("unexpected prompt: %q", prompt.String())
		}
	})
}

func TestRunGenerateCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes llms.txt and optional files", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t, testPages)
		outDir := filepath.Join(t.TempDir(), "out")

		stdout, _, err := executeCommand(t, generateArgs(t,
			"--skip-enhance", "--full", "--json", "-n", "Test Site", "-o", outDir, srv.URL)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc := readFile(t, filepath.Join(outDir, llmsFileName))
		want := "# Test Site\n\n> Site map of Test Site (" + srv.URL + "), auto-generated for LLM context.\n\n" +
			"## Home\n\n- [Home](" + srv.URL + ")\n\n" +
			"## About\n\n- [About Us](" + srv.URL + "/about)\n\n" +
			"## Docs\n\n- [Intro](" + srv.URL + "/docs/intro)\n- [Setup](" + srv.URL + "/docs/setup)\n"
		if doc != want {
			t.Errorf("llms.txt mismatch\ngot:\n%s\nwant:\n%s", doc, want)
		}
		if strings.Contains(doc, "manual.pdf") || strings.Contains(doc, "other.example") {
			t.Error("excluded or external URLs must not be listed")
		}

		full := readFile(t, filepath.Join(outDir, llmsFullFileName))
		if !strings.Contains(full, "[About Us]("+srv.URL+"/about): Who we are") {
			t.Errorf("llms-full.txt should carry descriptions:\n%s", full)
		}

		var report struct {
			Version string `json:"version"`
			Run     struct {
				SiteMap struct {
					Title    string `json:"title"`
					Sections []struct {
						Key string `json:"key"`
					} `json:"sections"`
				} `json:"site_map"`
				Stats struct {
					Fetched    int    `json:"fetched"`
					StopReason string `json:"stop_reason"`
				} `json:"stats"`
			} `json:"run"`
		}
		if err := json.Unmarshal([]byte(readFile(t, filepath.Join(outDir, siteMapFileName))), &report); err != nil {
			t.Fatalf("invalid sitemap.json: %v", err)
		}
		if report.Version == "" || report.Run.SiteMap.Title != "Test Site" || len(report.Run.SiteMap.Sections) != 3 {
			t.Errorf("sitemap.json = %+v", report)
		}
		if report.Run.Stats.Fetched != 4 || report.Run.Stats.StopReason != "queue_exhausted" {
			t.Errorf("stats = %+v", report.Run.Stats)
		}

		if !strings.Contains(stdout, "Wrote "+filepath.Join(outDir, llmsFileName)) {
			t.Errorf("expected written paths in output: %s", stdout)
		}
		if !strings.Contains(stdout, "LLMSGEN SUMMARY") {
			t.Errorf("expected summary in output: %s", stdout)
		}
	})

	t.Run("respects the page budget", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t, testPages)
		outDir := t.TempDir()

		if _, _, err := executeCommand(t, generateArgs(t, "--skip-enhance", "-p", "2", "-o", outDir, srv.URL)...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		doc := readFile(t, filepath.Join(outDir, llmsFileName))
		if n := strings.Count(doc, "\n- ["); n != 2 {
			t.Errorf("expected 2 links, got %d:\n%s", n, doc)
		}
	})

	t.Run("stdout mode", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t, testPages)
		outDir := t.TempDir()

		stdout, stderr, err := executeCommand(t, generateArgs(t, "--skip-enhance", "--stdout", "-o", outDir, srv.URL)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(stdout, "# 127.0.0.1\n") {
			t.Errorf("expected the document on stdout, got:\n%s", stdout)
		}
		if strings.Contains(stdout, "LLMSGEN SUMMARY") {
			t.Error("summary must not be mixed into the document")
		}
		if !strings.Contains(stderr, "LLMSGEN SUMMARY") {
			t.Errorf("expected summary on stderr: %s", stderr)
		}
		if _, err := os.Stat(filepath.Join(outDir, llmsFileName)); !os.IsNotExist(err) {
			t.Error("no file should be written in stdout mode")
		}
	})

	t.Run("multiple origins get their own directories", func(t *testing.T) {
		t.Parallel()

		a := newTestSite(t, testPages)
		b := newTestSite(t, map[string]string{"/": `<html><head><title>B Home</title></head><body></body></html>`})
		outDir := t.TempDir()

		if _, _, err := executeCommand(t, generateArgs(t, "--skip-enhance", "-b", "2", "-o", outDir, a.URL, b.URL)...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, srv := range []*httptest.Server{a, b} {
			dir := outputDirFor(outDir, srv.URL, true)
			doc := readFile(t, filepath.Join(dir, llmsFileName))
			if !strings.Contains(doc, "("+srv.URL+")") {
				t.Errorf("%s/llms.txt does not list its own origin:\n%s", dir, doc)
			}
		}
	})

	t.Run("site without pages fails and writes nothing", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t, map[string]string{})
		outDir := t.TempDir()

		_, stderr, err := executeCommand(t, generateArgs(t, "--skip-enhance", "-o", outDir, srv.URL)...)
		if !errors.Is(err, errNoPages) {
			t.Errorf("expected errNoPages, got %v", err)
		}
		if !strings.Contains(stderr, errNoPages.Error()) {
			t.Errorf("expected error on stderr: %s", stderr)
		}
		if _, err := os.Stat(filepath.Join(outDir, llmsFileName)); !os.IsNotExist(err) {
			t.Error("llms.txt must not be written for an empty crawl")
		}
	})

	t.Run("saves history", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t, testPages)
		dbDir := t.TempDir()

		args := generateArgs(t, "--skip-enhance", "--save", "-o", t.TempDir(), srv.URL)
		args = append(args, "--db-dir", dbDir)
		if _, _, err := executeCommand(t, args...); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		runs, err := db.ListRuns(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].PageCount != 4 {
			t.Errorf("runs = %+v", runs)
		}
	})

	t.Run("configuration errors", func(t *testing.T) {
		t.Parallel()

		if _, _, err := executeCommand(t, generateArgs(t)...); !errors.Is(err, config.ErrNoOrigin) {
			t.Errorf("expected ErrNoOrigin, got %v", err)
		}
		_, _, err := executeCommand(t, generateArgs(t, "--stdout", "https://a.example", "https://b.example")...)
		if !errors.Is(err, config.ErrStdoutMultipleOrigins) {
			t.Errorf("expected ErrStdoutMultipleOrigins, got %v", err)
		}
		if _, _, err := executeCommand(t, generateArgs(t, "-p", "0", "https://a.example")...); !errors.Is(err, config.ErrInvalidMaxPages) {
			t.Errorf("expected ErrInvalidMaxPages, got %v", err)
		}
		_, _, err = executeCommand(t, generateArgs(t, "-o", t.TempDir(), "https://x.test", "https://x.test/")...)
		if !errors.Is(err, errOutputDirConflict) {
			t.Errorf("expected errOutputDirConflict, got %v", err)
		}
	})

	t.Run("missing prompt file", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t, testPages)
		_, _, err := executeCommand(t, generateArgs(t,
			"--prompt-file", filepath.Join(t.TempDir(), "missing.tmpl"), "-o", t.TempDir(), srv.URL)...)
		if err == nil || !strings.Contains(err.Error(), "prompt file") {
			t.Errorf("expected prompt file error, got %v", err)
		}
	})
}

// geminiAnswer wraps text in a generateContent response.
func geminiAnswer(text string) []byte {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return b
}

// TestRunGenerateCmdEnhancement uses t.Setenv and cannot run in parallel.
func TestRunGenerateCmdEnhancement(t *testing.T) {
	t.Setenv("LLMSGEN_TEST_GEMINI_KEY", "test-key")

	t.Run("writes the enhanced document", func(t *testing.T) {
		enhanced := "# Test Site\n\n> Curated.\n\n## Docs\n\n- [Intro](https://example.com/docs/intro): Start here\n"
		var calls atomic.Int32
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.URL.Query().Get("key") != "test-key" {
				t.Errorf("missing API key in request")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(geminiAnswer("```markdown\n" + enhanced + "```"))
		}))
		defer api.Close()

		srv := newTestSite(t, testPages)
		outDir := t.TempDir()

		_, stderr, err := executeCommand(t, generateArgs(t,
			"--api-key-env", "LLMSGEN_TEST_GEMINI_KEY", "--endpoint", api.URL, "--full",
			"-n", "Test Site", "-o", outDir, srv.URL)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 API call, got %d", calls.Load())
		}
		if got := readFile(t, filepath.Join(outDir, llmsFileName)); got != enhanced {
			t.Errorf("llms.txt = %q, want the enhanced document", got)
		}
		full := readFile(t, filepath.Join(outDir, llmsFullFileName))
		if !strings.Contains(full, "## About") {
			t.Errorf("llms-full.txt should be rendered from the site map:\n%s", full)
		}
		if strings.Contains(stderr, "test-key") {
			t.Error("API key leaked into the log output")
		}
	})

	t.Run("falls back to the site map when enhancement fails", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusBadRequest)
		}))
		defer api.Close()

		srv := newTestSite(t, testPages)
		outDir := t.TempDir()

		_, stderr, err := executeCommand(t, generateArgs(t,
			"--api-key-env", "LLMSGEN_TEST_GEMINI_KEY", "--endpoint", api.URL,
			"-n", "Test Site", "-o", outDir, srv.URL)...)
		if err != nil {
			t.Fatalf("enhancement failure must not fail the command: %v", err)
		}
		doc := readFile(t, filepath.Join(outDir, llmsFileName))
		if !strings.HasPrefix(doc, "# Test Site\n\n> Site map of Test Site") {
			t.Errorf("expected the core document, got:\n%s", doc)
		}
		if !strings.Contains(stderr, "enhancement failed") {
			t.Errorf("expected a warning on stderr: %s", stderr)
		}
	})

	t.Run("missing key falls back with a warning", func(t *testing.T) {
		srv := newTestSite(t, testPages)
		outDir := t.TempDir()

		_, stderr, err := executeCommand(t, generateArgs(t,
			"--api-key-env", "LLMSGEN_TEST_UNSET_KEY", "-o", outDir, srv.URL)...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr, "LLMSGEN_TEST_UNSET_KEY is not set") {
			t.Errorf("expected a missing key warning: %s", stderr)
		}
		if _, err := os.Stat(filepath.Join(outDir, llmsFileName)); err != nil {
			t.Errorf("llms.txt should still be written: %v", err)
		}
	})
}
