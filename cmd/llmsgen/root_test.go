package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "llmsgen" {
			t.Errorf("expected use 'llmsgen', got %q", cmd.Use)
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()
		verbose := cmd.PersistentFlags().Lookup("verbose")
		if verbose == nil {
			t.Fatal("expected verbose flag")
		}
		if verbose.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", verbose.Shorthand)
		}
		if cmd.PersistentFlags().Lookup("log-json") == nil {
			t.Error("expected log-json flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"generate": false, "history": false, "validate": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestGetBoolFlag(t *testing.T) {
	t.Parallel()

	root := NewRootCmd()
	if err := root.PersistentFlags().Set("verbose", "true"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	generate, _, err := root.Find([]string{"generate"})
	if err != nil {
		t.Fatalf("failed to find generate: %v", err)
	}

	if !getBoolFlag(generate, "verbose") {
		t.Error("expected verbose from the root's persistent flags")
	}
	if getBoolFlag(generate, "no-such-flag") {
		t.Error("expected false for an unknown flag")
	}
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("text logs warnings only unless verbose", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := setupLogger(&buf, false, false)
		logger.Debug("debug-hidden")
		logger.Info("info-hidden")
		logger.Warn("shown")
		out := buf.String()
		if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
			t.Errorf("unexpected log output: %q", out)
		}
	})

	t.Run("verbose text logs debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		setupLogger(&buf, true, false).Debug("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Errorf("unexpected log output: %q", buf.String())
		}
	})

	t.Run("json redacts api keys", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := setupLogger(&buf, true, true)
		logger.Debug("request", "api_key", "AIzaSyExampleSecretValue123")
		out := buf.String()
		if !strings.HasPrefix(out, "{") {
			t.Errorf("expected JSON output, got %q", out)
		}
		if strings.Contains(out, "AIzaSyExampleSecretValue123") {
			t.Errorf("api key leaked: %q", out)
		}
	})
}
