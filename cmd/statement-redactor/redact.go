package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/statement-redactor/internal/redact"
	"github.com/example/statement-redactor/pkg/transaction"
)

var (
	keywordFlags []string
	outputDir    string
)

var redactCmd = &cobra.Command{
	Use:   "redact <statement.pdf>",
	Short: "Black out non-whitelisted transactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, r, err := setup(outputDir)
		if err != nil {
			return err
		}

		keywords := redact.ParseKeywords(keywordFlags...)
		if len(keywords) == 0 {
			keywords = cfg.Whitelist
		}

		result, err := r.RedactDocument(args[0], filepath.Base(args[0]), keywords)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redacted %d page(s), %d mark(s)\n", result.Pages, result.MarkCount())
		fmt.Fprintf(out, "Output:           %s\n", result.OutputPath)
		fmt.Fprintf(out, "Amount remaining: %s\n",
			color.New(color.FgGreen, color.Bold).Sprint(transaction.FormatTotal(result.Total(), cfg.CurrencyCode)))
		for page := 1; page <= result.Pages; page++ {
			for _, a := range result.Amounts.GetByPage(page) {
				fmt.Fprintf(out, "  page %d: %s\n", page, a.Text)
			}
		}
		if result.Amounts.Skipped > 0 {
			fmt.Fprintln(out, color.YellowString("Skipped %d unparseable amount(s)", result.Amounts.Skipped))
		}
		return nil
	},
}

func init() {
	redactCmd.Flags().StringSliceVarP(&keywordFlags, "keyword", "k", nil, "whitelist keyword (repeatable or comma-separated)")
	redactCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for the redacted file (default from config)")
}
