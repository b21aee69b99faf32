package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/afriplan/takeoff-cli/internal/compliance"
	"github.com/afriplan/takeoff-cli/internal/model"
)

var validateTier string

var validateCmd = &cobra.Command{
	Use:   "validate <extraction.json>",
	Short: "Run SANS 10142-1 validation on an extraction result",
	Long:  "Validates an already-extracted dataset without touching the provider. Useful for re-checking a run after manual corrections.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extraction, tier, err := loadExtraction(args[0], validateTier)
		if err != nil {
			return err
		}

		result := compliance.Validate(extraction, tier)

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal validation result")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if result.Score < 90 {
			fmt.Fprintf(cmd.ErrOrStderr(), "compliance score %.0f: unresolved critical findings remain\n", result.Score)
		}
		return nil
	},
}

func loadExtraction(path, tierArg string) (model.ExtractionResult, model.ServiceTier, error) {
	var extraction model.ExtractionResult

	data, err := os.ReadFile(path)
	if err != nil {
		return extraction, "", eris.Wrap(err, "read extraction file")
	}
	if err := json.Unmarshal(data, &extraction); err != nil {
		return extraction, "", eris.Wrap(err, "parse extraction file")
	}

	tier := model.ServiceTier(tierArg)
	if tierArg == "" {
		tier = model.TierResidential
	} else if !tier.Valid() {
		return extraction, "", eris.Errorf("invalid tier: %s", tierArg)
	}
	return extraction, tier, nil
}

func init() {
	validateCmd.Flags().StringVar(&validateTier, "tier", "", "service tier the rules apply to (default residential)")
	rootCmd.AddCommand(validateCmd)
}
