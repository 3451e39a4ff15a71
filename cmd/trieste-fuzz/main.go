// Command trieste-fuzz drives the checker and fuzzer packages against the
// calcfixture infix-calculator pipeline: "check" lints the fixture's
// patterns, "fuzz" generates random trees and runs them through the
// fixture's passes, printing fuzzer's per-pass passed/trivial/errored/failed
// counts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/trieste/checker"
	"github.com/aledsdavies/trieste/fuzzer"
	"github.com/aledsdavies/trieste/internal/calcfixture"
	"github.com/aledsdavies/trieste/pattern"
)

func main() {
	var noColor bool
	root := rootCmd(&noColor)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Colorize("error: ", ColorRed, ShouldUseColor(noColor))+err.Error())
		os.Exit(1)
	}
}

func rootCmd(noColor *bool) *cobra.Command {
	root := &cobra.Command{
		Use:           "trieste-fuzz",
		Short:         "Lint and fuzz the calcfixture pipeline",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVar(noColor, "no-color", false, "disable colored output")

	root.AddCommand(checkCmd(noColor), fuzzCmd(noColor))
	return root
}

func checkCmd(noColor *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Lint the fixture's patterns for authoring mistakes",
		RunE: func(cmd *cobra.Command, args []string) error {
			useColor := ShouldUseColor(*noColor)

			pr := calcfixture.PassRange()

			var total int
			for pr.HasNext() {
				np := pr.Current()
				inputWF := pr.InputWF()

				patterns := make([]pattern.Pattern, len(np.Pass.Rules))
				for i, rule := range np.Pass.Rules {
					findings := checker.CheckPattern(rule.Pattern)
					findings = append(findings, checker.CheckTokensExist(rule.Pattern, inputWF, np.WF)...)
					total += len(findings)
					printFindings(cmd.OutOrStdout(), np.Name, findings, useColor)
					patterns[i] = rule.Pattern
				}

				shadowed := checker.CheckUnreachable(patterns)
				total += len(shadowed)
				printFindings(cmd.OutOrStdout(), np.Name, shadowed, useColor)

				pr.Advance()
			}

			if total > 0 {
				return fmt.Errorf("%d finding(s)", total)
			}
			fmt.Fprintln(cmd.OutOrStdout(), Colorize("no findings", ColorGreen, useColor))
			return nil
		},
	}
}

func fuzzCmd(noColor *bool) *cobra.Command {
	var (
		count    int
		seed     uint64
		maxDepth int
		sequence bool
	)

	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Generate random trees and run them through the fixture's passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			useColor := ShouldUseColor(*noColor)

			if sequence {
				report := fuzzer.Sequence(calcfixture.ParseWF(), calcfixture.PassRange(), count, seed, maxDepth)
				printSequenceReport(cmd.OutOrStdout(), report, useColor)
				if report.Failed > 0 {
					return fmt.Errorf("%d/%d run(s) failed", report.Failed, len(report.Runs))
				}
				return nil
			}

			reports := fuzzer.SinglePass(calcfixture.PassRange(), count, seed, maxDepth)
			fmt.Fprint(cmd.OutOrStdout(), fuzzer.Summary(reports))

			var failed int
			for _, r := range reports {
				failed += r.Failed
			}
			if failed > 0 {
				return fmt.Errorf("%d failing run(s)", failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 50, "number of trees to generate per pass")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "starting PRNG seed")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 4, "maximum generated tree depth")
	cmd.Flags().BoolVar(&sequence, "sequence", false, "thread each tree through the whole pipeline instead of one pass at a time")

	return cmd
}
