package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Daham-Mustaf/semantic-policy-generation/eval"
	"github.com/Daham-Mustaf/semantic-policy-generation/generator"
	"github.com/Daham-Mustaf/semantic-policy-generation/pipeline"
	"github.com/Daham-Mustaf/semantic-policy-generation/policy"
	"github.com/Daham-Mustaf/semantic-policy-generation/validator"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

func runCmd(configPath *string) *cobra.Command {
	var (
		reqFile   string
		vocabPath string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "run [requirement text]",
		Short: "Process one requirement through the pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requirement, err := readRequirement(args, reqFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Stop()

			vocab, err := app.LoadVocabulary(vocabPath)
			if err != nil {
				return err
			}

			outcome, runErr := app.Pipeline().Run(ctx, requirement, vocab)
			if app.Store() != nil && outcome != nil {
				if err := app.Store().SaveRun(ctx, outcome); err != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to save run record: %v\n", err)
				}
			}

			if asJSON {
				data, err := json.MarshalIndent(outcome, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return runErr
			}

			printOutcome(outcome)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&reqFile, "file", "f", "", "Read the requirement from a file")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary file (overrides config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full outcome as JSON")

	return cmd
}

func batchCmd(configPath *string) *cobra.Command {
	var (
		vocabPath   string
		concurrency int
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "batch <dataset glob>...",
		Short: "Run the pipeline over a requirement dataset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Stop()

			vocab, err := app.LoadVocabulary(vocabPath)
			if err != nil {
				return err
			}

			cases, err := eval.LoadDataset(args...)
			if err != nil {
				return err
			}

			opts := []eval.RunnerOption{}
			if concurrency > 0 {
				opts = append(opts, eval.WithConcurrency(concurrency))
			} else {
				opts = append(opts, eval.WithConcurrency(app.cfg.Eval.Concurrency))
			}
			if outputDir != "" {
				opts = append(opts, eval.WithOutputDir(outputDir))
			} else if app.cfg.Eval.OutputDir != "" {
				opts = append(opts, eval.WithOutputDir(app.cfg.Eval.OutputDir))
			}

			runner := eval.NewRunner(app.Pipeline(), opts...)
			results, err := runner.Run(ctx, cases, vocab)
			if err != nil {
				return err
			}

			eval.RenderTable(os.Stdout, results)

			summary := eval.Summarize(results)
			if summary.Matched < summary.Asserted {
				return fmt.Errorf("%d of %d asserted cases did not match", summary.Asserted-summary.Matched, summary.Asserted)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary file (overrides config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel pipeline runs (0 = config default)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for per-case result files")

	return cmd
}

func checkCmd(configPath *string) *cobra.Command {
	var vocabPath string

	cmd := &cobra.Command{
		Use:   "check <policy.json>",
		Short: "Check an existing policy document without generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Stop()

			vocab, err := app.LoadVocabulary(vocabPath)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := policy.Parse(data)
			if err != nil {
				return err
			}

			report, err := checkDocument(ctx, doc, app.ShapeStore().Current(), vocab)
			if err != nil {
				return err
			}

			if report.Conformant() {
				fmt.Printf("policy %s: conformant\n", doc.UID)
				return nil
			}

			for _, v := range report.Violations {
				fmt.Println(v)
			}
			return fmt.Errorf("policy %s: %d violation(s)", doc.UID, len(report.Violations))
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary file (overrides config)")

	return cmd
}

func vocabCmd(configPath *string) *cobra.Command {
	var vocabPath string

	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Print the allowed vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Core actions:")
			for _, a := range odrl.Actions() {
				fmt.Printf("  %s\n", a)
			}

			fmt.Println("Constraint left operands:")
			for _, op := range odrl.LeftOperands() {
				info, _ := op.Info()
				ops := make([]string, len(info.Operators))
				for i, o := range info.Operators {
					ops[i] = string(o)
				}
				fmt.Printf("  %s: %s\n", op, strings.Join(ops, ", "))
			}

			app, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Stop()

			vocab, err := app.LoadVocabulary(vocabPath)
			if err != nil {
				// Core terms alone are still useful output.
				return nil
			}
			fmt.Println("Declared terms:")
			for _, term := range vocab.Terms() {
				fmt.Printf("  %s\n", term)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary file (overrides config)")

	return cmd
}

// checkDocument runs the full checking stack over a document: shapes,
// compatibility, and vocabulary grounding.
func checkDocument(ctx context.Context, doc *policy.Document, shapes *validator.Shapes, vocab *odrl.Vocabulary) (*validator.Report, error) {
	structural, err := validator.NewShapeChecker().Check(ctx, doc, shapes)
	if err != nil {
		return nil, err
	}
	semantic, err := validator.NewCompatChecker().CheckSemantics(ctx, doc)
	if err != nil {
		return nil, err
	}

	violations := append(structural, semantic...)
	if vocabErr := generator.Ground(doc, vocab); vocabErr != nil {
		for _, ref := range vocabErr.Unresolved {
			violations = append(violations, validator.Violation{
				Kind:       validator.KindSemantic,
				Constraint: "vocabulary-grounding",
				Message:    fmt.Sprintf("%s %q is not a declared vocabulary term", ref.Role, ref.Value),
				Node:       ref.Node,
			})
		}
	}

	return &validator.Report{
		PolicyID:   doc.UID,
		Violations: violations,
		Attempt:    1,
	}, nil
}

func readRequirement(args []string, reqFile string) (string, error) {
	if reqFile != "" {
		data, err := os.ReadFile(reqFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	return "", fmt.Errorf("provide a requirement as an argument or with --file")
}

func printOutcome(outcome *pipeline.Outcome) {
	if outcome == nil {
		return
	}

	fmt.Printf("Run %s: %s\n", outcome.RunID, outcome.Status)

	if outcome.Reasoning != nil && len(outcome.Reasoning.Findings) > 0 {
		fmt.Printf("\nFindings (%s):\n", outcome.Reasoning.Decision)
		for _, f := range outcome.Reasoning.Findings {
			fmt.Printf("  [phase %d] %s: %s\n", f.Phase, f.Category, f.Explanation)
			if f.Suggestion != "" {
				fmt.Printf("    suggestion: %s\n", f.Suggestion)
			}
		}
	}

	switch outcome.Status {
	case pipeline.StatusSuccess:
		fmt.Printf("\nAttempts: %d\n\n%s", len(outcome.Attempts), outcome.Turtle)
	case pipeline.StatusFailed:
		fmt.Printf("\nError: %s\n", outcome.Error)
		if n := len(outcome.Attempts); n > 0 {
			last := outcome.Attempts[n-1]
			if last.Report != nil {
				fmt.Printf("Remaining violations after %d attempt(s):\n", n)
				for _, v := range last.Report.Violations {
					fmt.Printf("  %s\n", v)
				}
			}
		}
	}
}
