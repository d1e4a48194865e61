package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	seclog "github.com/nao1215/llmsgen/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for llmsgen.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llmsgen",
		Short: "Generate llms.txt site maps for websites",
		Long: `llmsgen crawls a website and generates an llms.txt file: a markdown
index of the site's pages grouped by URL path, written for large language
models.

The crawl stays within the given origin and a page budget. When a Gemini API
key is available, the document is optionally rewritten into a curated
version; the plain site map is always kept as a fallback.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	// Add subcommands
	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
// SIGINT and SIGTERM cancel the command context so an interrupted crawl
// still writes the pages it has found.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// getBoolFlag retrieves a boolean flag from the command or the root's
// persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates a structured logger that redacts secrets such as the
// API key from every record.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return seclog.NewSecureJSONLogger(w, verbose)
	}
	return seclog.NewSecureLogger(w, verbose)
}
