package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/statement-redactor/internal/redact"
)

var inspectKeywords []string

var inspectCmd = &cobra.Command{
	Use:   "inspect <statement.pdf>",
	Short: "Show how each text fragment would be classified",
	Long: `Inspect runs the classifier without writing anything and prints, for every
text fragment, the rule that decided it and whether it would be blacked out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, r, err := setup("")
		if err != nil {
			return err
		}

		keywords := redact.ParseKeywords(inspectKeywords...)
		if len(keywords) == 0 {
			keywords = cfg.Whitelist
		}

		plans, err := r.Inspect(args[0], keywords)
		if err != nil {
			return err
		}

		marked := color.New(color.FgRed).SprintFunc()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, p := range plans {
			if p.HasSection {
				fmt.Fprintf(tw, "page %d\tsection below y=%.2f\t\t\n", p.Page, p.SectionY)
			} else {
				fmt.Fprintf(tw, "page %d\tno section\t\t\n", p.Page)
			}
			for _, d := range p.Decisions {
				rule := string(d.Rule)
				if rule == "" {
					rule = "-"
				}
				state := "keep"
				if d.Marked {
					state = marked("redact")
				}
				fmt.Fprintf(tw, "\t%s\t%s\t%q\n", state, rule, d.Text)
			}
		}
		return tw.Flush()
	},
}

func init() {
	inspectCmd.Flags().StringSliceVarP(&inspectKeywords, "keyword", "k", nil, "whitelist keyword (repeatable or comma-separated)")
}
