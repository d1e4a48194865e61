package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/llmsgen/internal/document"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check that a file follows the llms.txt layout",
		Long: `Validate parses an llms.txt file and checks its layout: a leading H1
title, no second H1, no heading below H2, and absolute http(s) link URLs.

With no argument or "-" the document is read from standard input.

Examples:
  llmsgen validate llms.txt
  curl -s https://example.com/llms.txt | llmsgen validate --require-links`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidateCmd,
	}

	cmd.Flags().Bool("require-links", false, "Fail when the document has no links")
	cmd.Flags().BoolP("quiet", "q", false, "Print nothing; only set the exit status")

	return cmd
}

// runValidateCmd executes the validate command.
func runValidateCmd(cmd *cobra.Command, args []string) error {
	requireLinks, err := cmd.Flags().GetBool("require-links")
	if err != nil {
		return err
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	src, err := readDocument(cmd.InOrStdin(), name)
	if err != nil {
		return err
	}

	doc := document.Parse(src)
	if requireLinks {
		err = doc.ValidateWithLinks()
	} else {
		err = doc.Validate()
	}
	if err != nil {
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s is not a valid llms.txt document:\n", displayName(name))
			for _, e := range unwrapJoined(err) {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
			}
		}
		return fmt.Errorf("validation failed: %s", displayName(name))
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%q, %d sections, %d links)\n",
			displayName(name), doc.Title, len(doc.Sections), len(doc.Links()))
	}
	return nil
}

// readDocument reads the named file, or in when name is "-".
func readDocument(in io.Reader, name string) ([]byte, error) {
	if name == "-" {
		src, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return src, nil
	}
	src, err := os.ReadFile(name) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return src, nil
}

// displayName names the input in messages.
func displayName(name string) string {
	if name == "-" {
		return "<stdin>"
	}
	return name
}

// unwrapJoined splits an errors.Join result into its parts.
func unwrapJoined(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, unwrapJoined(e)...)
		}
		return out
	}
	return []error{err}
}
