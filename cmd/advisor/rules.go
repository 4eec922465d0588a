package main

import (
	"fmt"

	"advisor/internal/config"
	"advisor/internal/logging"
	"advisor/internal/rules"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the registered analysis rules",
	Long: `Print the registered rule identifiers in evaluation order. This is the
same list the /health endpoint reports as rules_loaded.`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	engine := rules.NewEngine(rules.Canonical(cfg.Rules), logging.Nop())
	for i, id := range engine.RuleIDs() {
		fmt.Printf("%d. %s\n", i+1, id)
	}
	return nil
}
