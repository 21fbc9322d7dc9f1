package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"formcraft/internal/auth"
	"formcraft/internal/builder"
	"formcraft/internal/engine"
	"formcraft/internal/form"
	"formcraft/internal/store"
)

var (
	previewIndex  int
	previewValues string
	previewSubmit bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <forms-file>",
	Short: "Render a form file against a set of values",
	Long: `Render one form from a JSON or YAML forms file (the seed file format)
and print the visible fields as JSON.

With --submit the values are validated the way a preview submission is.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for auth.password_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVarP(&previewIndex, "index", "i", 0, "index of the form in the file")
	previewCmd.Flags().StringVar(&previewValues, "values", "", "JSON or YAML file with field values keyed by field id")
	previewCmd.Flags().BoolVar(&previewSubmit, "submit", false, "validate the values as a submission")
}

func runPreview(cmd *cobra.Command, args []string) error {
	forms, err := store.LoadSeedFile(args[0])
	if err != nil {
		return err
	}
	if previewIndex < 0 || previewIndex >= len(forms) {
		return fmt.Errorf("form index %d out of range (file has %d forms)", previewIndex, len(forms))
	}

	values, err := loadValues(previewValues)
	if err != nil {
		return err
	}

	return writePreview(cmd.OutOrStdout(), forms[previewIndex], values, previewSubmit)
}

func writePreview(w io.Writer, f *form.Form, values engine.Values, submit bool) error {
	out := struct {
		Preview builder.PreviewResult `json:"preview"`
		Submit  *builder.SubmitResult `json:"submit,omitempty"`
	}{Preview: builder.Render(f, values)}

	if submit {
		errs := engine.ValidateSubmission(f, values, engine.NewExprLangEvaluator())
		out.Submit = &builder.SubmitResult{Accepted: len(errs) == 0, Errors: errs}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// loadValues reads a values file. YAML is a superset of JSON, so one decoder
// serves both.
func loadValues(path string) (engine.Values, error) {
	values := engine.Values{}
	if path == "" {
		return values, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return values, nil
}
