package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huquq-center/insaf/internal/wizard"
)

func newDraftCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Work on the case-submission wizard draft",
	}
	cmd.AddCommand(
		newDraftStatusCmd(app),
		newDraftSetCmd(app),
		newDraftNextCmd(app),
		newDraftBackCmd(app),
		newDraftGotoCmd(app),
		newDraftUploadCmd(app),
		newDraftSubmitCmd(app),
		newDraftResetCmd(app),
	)
	return cmd
}

func newDraftStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the wizard position, completed steps, and the draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "step %d of %d", app.engine.CurrentStep(), wizard.StepCount)
			if done := app.engine.CompletedSteps(); len(done) > 0 {
				fmt.Fprintf(out, ", completed %v", done)
			}
			fmt.Fprintln(out)

			for _, n := range app.engine.ErrorSteps() {
				for _, msg := range app.engine.ErrorSummary(n) {
					fmt.Fprintf(out, "  step %d: %s\n", n, msg)
				}
			}
			return printJSON(out, app.engine.Draft())
		},
	}
}

func newDraftSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <section> <field>=<value> ...",
		Short: "Merge field values into a draft section",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			changed, err := app.engine.UpdateSection(args[0], partial)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "no changes")
				return nil
			}
			return reportStep(cmd, app, app.engine.CurrentStep())
		},
	}
}

// parseFields turns field=value arguments into a section partial.
// "true"/"false" become booleans, a bare "-" clears to null.
func parseFields(args []string) (map[string]any, error) {
	partial := make(map[string]any, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		switch raw {
		case "true", "false":
			b, _ := strconv.ParseBool(raw)
			partial[field] = b
		case "-":
			partial[field] = nil
		default:
			partial[field] = raw
		}
	}
	return partial, nil
}

func reportStep(cmd *cobra.Command, app *App, n int) error {
	res := app.engine.ValidateStep(n)
	if res.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "step %d ready\n", n)
		return nil
	}

	fields := make([]string, 0, len(res.FieldErrors))
	for f := range res.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", f, res.FieldErrors[f])
	}
	return nil
}

func newDraftNextCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Complete the current step and advance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.engine.GoNext(); err != nil {
				if err == wizard.ErrStepBlocked {
					fmt.Fprintln(cmd.OutOrStdout(), "current step is not complete:")
					return reportStep(cmd, app, app.engine.CurrentStep())
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "now at step %d\n", app.engine.CurrentStep())
			return nil
		},
	}
}

func newDraftBackCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "back",
		Short: "Go back one step",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.engine.GoPrevious(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "now at step %d\n", app.engine.CurrentStep())
			return nil
		},
	}
}

func newDraftGotoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "goto <step>",
		Short: "Jump to a completed or reachable step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid step %q", args[0])
			}
			if err := app.engine.GoToStep(n); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "now at step %d\n", app.engine.CurrentStep())
			return nil
		},
	}
}

func newDraftUploadCmd(app *App) *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "upload <kind> <file>",
		Short: "Upload a document and record its reference in the draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			doc, err := app.svc.UploadDocument(cmd.Context(), kind, filepath.Base(path), content)
			if err != nil {
				return err
			}

			if field == "" {
				field = kind + "_ref"
			}
			section := sectionForDocumentField(field)
			if _, err := app.engine.UpdateSection(section, map[string]any{field: doc.ID}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s as %s\n", path, doc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "draft field to store the reference in (defaults to <kind>_ref)")
	return cmd
}

func sectionForDocumentField(field string) string {
	switch field {
	case "power_of_attorney_ref", "client_id_copy_ref":
		return wizard.SectionDelegation
	default:
		return wizard.SectionDocuments
	}
}

func newDraftSubmitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit the completed draft as a new case",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.svc.SubmitCase(cmd.Context(), app.engine)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "case submitted: %s\n", res.CaseNumber)
			return nil
		},
	}
}

func newDraftResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the draft and wizard progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.engine.Reset()
			fmt.Fprintln(cmd.OutOrStdout(), "draft cleared")
			return nil
		},
	}
}
