package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/chatflow/internal/diagram"
	"github.com/rendis/chatflow/internal/expressions"
	"github.com/rendis/chatflow/internal/validation"
	"github.com/rendis/chatflow/pkg/schema"
)

// errInvalidFlow makes the process exit 1 after the verdict has been printed.
var errInvalidFlow = errors.New("flow is invalid")

// readFlowFile decodes a flow document from path, or from stdin when path
// is "-". Nodes and edges may be JSON arrays or JSON-encoded text.
func readFlowFile(cmd *cobra.Command, path string) (*schema.Flow, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var f schema.Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeDecode, "decode %s: %v", path, err).WithCause(err)
	}
	return &f, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newValidateCmd(a *app) *cobra.Command {
	var full, strict bool

	cmd := &cobra.Command{
		Use:   "validate <file.json|->",
		Short: "Validate a flow document",
		Long: `Validate runs every structural and semantic check over a flow document and
prints the verdict as JSON. The exit status is 1 when the flow is invalid.
Config shape and semantic findings are warnings unless --strict is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFlowFile(cmd, args[0])
			if err != nil {
				return err
			}
			var opts []validation.Option
			if strict {
				opts = append(opts, validation.WithStrict())
			}
			v, err := validation.NewFlowValidator(nil, opts...)
			if err != nil {
				return err
			}

			result := v.ValidateFlow(f)
			a.logger.Debug("flow validated", "file", args[0],
				"errors", len(result.Errors), "warnings", len(result.Warnings))

			var out any = result.Verdict()
			if full {
				out = result
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !result.Valid() {
				return errInvalidFlow
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "print every issue with path, code and severity, including warnings")
	cmd.Flags().BoolVar(&strict, "strict", false, "count config shape and semantic findings as errors")
	return cmd
}

func newDiagramCmd(a *app) *cobra.Command {
	var (
		format   string
		output   string
		noIssues bool
	)

	cmd := &cobra.Command{
		Use:   "diagram <file.json|->",
		Short: "Render a flow as a Mermaid chart or a PNG image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFlowFile(cmd, args[0])
			if err != nil {
				return err
			}

			var result *schema.ValidationResult
			if !noIssues {
				v, err := validation.NewFlowValidator(nil)
				if err != nil {
					return err
				}
				result = v.ValidateFlow(f)
			}
			model := diagram.Build(f, result)

			var data []byte
			switch format {
			case "mermaid":
				data = []byte(diagram.RenderMermaid(model))
			case "png":
				if output == "" {
					return fmt.Errorf("png output requires -o")
				}
				data, err = diagram.RenderImage(cmd.Context(), model)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want mermaid or png)", format)
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.Info("diagram written", "path", output, "format", format, "bytes", len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "mermaid", "output format: mermaid or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout, required for png)")
	cmd.Flags().BoolVar(&noIssues, "no-issues", false, "do not highlight validation issues")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	var (
		count int
		from  string
	)

	cmd := &cobra.Command{
		Use:   "schedule <cron>",
		Short: "Preview the next runs of a schedule trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := validation.ParseSchedule(args[0])
			if err != nil {
				return err
			}

			t := time.Now()
			if from != "" {
				if t, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}

			w := cmd.OutOrStdout()
			for range count {
				t = sched.Next(t)
				if t.IsZero() {
					break
				}
				fmt.Fprintln(w, t.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of runs to print")
	cmd.Flags().StringVar(&from, "from", "", "start time in RFC 3339 (default now)")
	return cmd
}

func newConditionCmd() *cobra.Command {
	var (
		cond schema.Condition
		vars []string
	)

	cmd := &cobra.Command{
		Use:   "condition",
		Short: "Evaluate a Conditional node predicate against sample variables",
		Example: `  flowctl condition --variable tier --operator equals --value vip --var tier=vip
  flowctl condition --variable score --operator greater --value 10 --var score=12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := parseVars(vars)
			if err != nil {
				return err
			}
			env := make(map[string]any, len(sample))
			for k, v := range sample {
				env[k] = v
			}
			cond.Operator = schema.Operator(strings.TrimSpace(string(cond.Operator)))

			handle, err := expressions.NewConditions().Evaluate(cmd.Context(), cond, env)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), handle)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cond.Variable, "variable", "", "variable to compare")
	f.StringVar((*string)(&cond.Operator), "operator", string(schema.OpEquals), "equals, contains, greater or less")
	f.StringVar(&cond.Value, "value", "", "value to compare against")
	f.StringArrayVar(&vars, "var", nil, "sample variable as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("variable")
	return cmd
}

func newMessagesCmd() *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "messages <file.json|->",
		Short: "Print the text of every message node with sample variables filled in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readFlowFile(cmd, args[0])
			if err != nil {
				return err
			}
			sample, err := parseVars(vars)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, n := range f.Nodes {
				switch c := n.Data.Config.(type) {
				case schema.TextMessageConfig:
					fmt.Fprintf(w, "%s: %s\n", n.DisplayName(), expressions.Render(c.Message, sample))
				case schema.MediaMessageConfig:
					fmt.Fprintf(w, "%s: [%s %s] %s\n", n.DisplayName(), c.MediaType, c.MediaURL,
						expressions.Render(c.Caption, sample))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "sample variable as name=value (repeatable)")
	return cmd
}

// parseVars reads repeated name=value flags.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q (want name=value)", kv)
		}
		vars[k] = v
	}
	return vars, nil
}
