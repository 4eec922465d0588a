package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"advisor/internal/analyzer"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	analyzeFormat   string
	analyzeNoCache  bool
	analyzeLangVer string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a Python snippet from a file or stdin",
	Long: `Run the analysis pipeline on one Python file and print the suggestions.
Reads from stdin when the file argument is "-" or omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format: json or yaml")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Bypass the result cache")
	analyzeCmd.Flags().StringVar(&analyzeLangVer, "language-version", "3", "Python version tag folded into the fingerprint")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFormat != "json" && analyzeFormat != "yaml" {
		return fmt.Errorf("unsupported format %q (expected json or yaml)", analyzeFormat)
	}

	source, err := readSource(args)
	if err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	unit := analyzer.SourceUnit{
		Code:            string(source),
		LanguageVersion: analyzeLangVer,
	}

	ctx := context.Background()
	var result *analyzer.AnalysisResult
	if analyzeNoCache {
		result, err = a.service.AnalyzeUncached(ctx, unit)
	} else {
		result, err = a.service.Analyze(ctx, unit)
	}
	if err != nil {
		return err
	}

	return printResult(result)
}

func readSource(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return source, nil
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return source, nil
}

func printResult(result *analyzer.AnalysisResult) error {
	switch analyzeFormat {
	case "yaml":
		out, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Print(string(out))
	default:
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}
