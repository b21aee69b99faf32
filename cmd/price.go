package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/afriplan/takeoff-cli/internal/compliance"
	"github.com/afriplan/takeoff-cli/internal/model"
	"github.com/afriplan/takeoff-cli/internal/pricing"
)

var (
	priceTier    string
	priceProfile string
	priceOutPath string
)

var priceCmd = &cobra.Command{
	Use:   "price <extraction.json>",
	Short: "Validate and price an extraction result offline",
	Long:  "Runs the compliance and pricing stages on an already-extracted dataset. No provider calls are made, so this is the fast path for re-pricing after a rate book change.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extraction, tier, err := loadExtraction(args[0], priceTier)
		if err != nil {
			return err
		}

		profile := model.DefaultContractorProfile()
		var site model.SiteConditions
		if priceProfile != "" {
			if err := readJSONFile(priceProfile, &struct {
				Contractor *model.ContractorProfile `json:"contractor"`
				Site       *model.SiteConditions    `json:"site"`
			}{&profile, &site}); err != nil {
				return err
			}
		}

		book, err := loadRateBook()
		if err != nil {
			return err
		}

		validated := compliance.Validate(extraction, tier)
		result := pricing.New(book, cfg.Pricing).Price(cmd.Context(), validated, tier, profile, site)

		if priceOutPath != "" {
			if err := writeJSON(priceOutPath, result); err != nil {
				return err
			}
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal pricing result")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read file")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}
	return nil
}

func init() {
	priceCmd.Flags().StringVar(&priceTier, "tier", "", "service tier the pricing rules apply to (default residential)")
	priceCmd.Flags().StringVar(&priceProfile, "profile", "", "JSON file with contractor profile and site conditions")
	priceCmd.Flags().StringVarP(&priceOutPath, "out", "o", "", "write the pricing result JSON to this path")
	rootCmd.AddCommand(priceCmd)
}
