// cmd/tools/spec-lint/main.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"era-intake/internal/formspec"
)

var errLintFailed = errors.New("one or more specs failed validation")

func main() {
	root := &cobra.Command{
		Use:           "spec-lint",
		Short:         "Validate and preview dynamic questionnaire specs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newRenderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newValidateCmd() *cobra.Command {
	var canonical bool

	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate spec files and report PII fields that would be removed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := false
			for _, path := range args {
				spec, ok, err := lintFile(cmd.OutOrStdout(), path)
				if err != nil {
					return err
				}
				if !ok {
					failed = true
					continue
				}
				if canonical {
					if err := writeJSON(cmd.OutOrStdout(), spec); err != nil {
						return err
					}
				}
			}
			if failed {
				return errLintFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&canonical, "canonical", false, "print the canonical, PII-filtered spec")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var answersPath string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Print the visible form for a spec and an optional answers file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, ok, err := lintFile(io.Discard, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errLintFailed
			}

			answers := formspec.Answers{}
			if answersPath != "" {
				data, err := os.ReadFile(answersPath)
				if err != nil {
					return fmt.Errorf("read answers: %w", err)
				}
				if err := json.Unmarshal(data, &answers); err != nil {
					return fmt.Errorf("parse answers: %w", err)
				}
			}
			return writeJSON(cmd.OutOrStdout(), formspec.Render(spec, answers))
		},
	}
	cmd.Flags().StringVar(&answersPath, "answers", "", "JSON file of answers keyed by field id")
	return cmd
}

// lintFile validates and PII-filters one spec file, printing a report to w.
func lintFile(w io.Writer, path string) (*formspec.Spec, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	result := formspec.ValidateJSON(data)
	for _, note := range result.Warnings {
		fmt.Fprintf(w, "%s: warning: %s\n", path, note)
	}
	if !result.OK() {
		for _, e := range result.Errors {
			fmt.Fprintf(w, "%s: %s\n", path, e.String())
		}
		return nil, false, nil
	}

	filtered, removed := formspec.FilterPII(*result.Spec)
	for _, id := range removed {
		fmt.Fprintf(w, "%s: removed PII field %q\n", path, id)
	}
	fmt.Fprintf(w, "%s: ok (%d fields)\n", path, len(filtered.Fields))
	return &filtered, true, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
