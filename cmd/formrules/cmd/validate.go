package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formlab/formrules/internal/core/db"
	"github.com/formlab/formrules/internal/engine"
	"github.com/formlab/formrules/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <form-id>",
	Short: "Validate all stored rules of a form against its field catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	formID, err := types.ParseFormID(args[0])
	if err != nil {
		return fmt.Errorf("invalid form id: %w", err)
	}

	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	store, err := db.NewStore(database)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	form, fieldRules, formRules, err := store.FormBundle(formID)
	if err != nil {
		return fmt.Errorf("failed to load form %s: %w", formID, err)
	}
	catalog := engine.NewCatalog(form.Fields)

	var issues []engine.Issue
	for _, rule := range fieldRules {
		issues = append(issues, engine.ValidateFieldRule(rule, catalog)...)
	}
	for _, rule := range formRules {
		issues = append(issues, engine.ValidateFormRule(rule, catalog)...)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(issues); err != nil {
		return err
	}
	if engine.HasErrors(issues) {
		return fmt.Errorf("form %s has rule errors", formID)
	}
	return nil
}
