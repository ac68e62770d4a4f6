package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/statement-redactor/internal/config"
	"github.com/example/statement-redactor/internal/pdfengine"
	"github.com/example/statement-redactor/internal/redact"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "statement-redactor",
	Short: "Redact transactions from bank statements",
	Long: `Statement Redactor blacks out the transactions on PDF bank and credit-card
statements that do not match a whitelist of keywords, and reports the total of
the amounts left visible.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Statement Redactor v" + version)
		fmt.Println("Use --help for available commands")
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "statement-redactor", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	rootCmd.AddCommand(versionCmd, redactCmd, inspectCmd, serveCmd)
}

// setup loads the configuration, installs the logger and builds a Redactor
// backed by the PDF engine.
func setup(outputDir string) (*config.Config, *redact.Redactor, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	r, err := redact.NewRedactor(redact.OpenerFunc(openPDF), cfg.Redaction(),
		redact.WithOutputDir(outputDir),
		redact.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return cfg, r, nil
}

func openPDF(path string) (redact.Document, error) {
	doc, err := pdfengine.Open(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
