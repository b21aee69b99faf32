package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/model"
)

var (
	runTierHint string
	runOutPath  string
)

var runCmd = &cobra.Command{
	Use:   "run <project.json>",
	Short: "Run a full takeoff for one drawing set",
	Long:  "Reads a prepared project file (pages with OCR text and rasters, contractor profile, site conditions) and runs classification, extraction, validation and pricing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		project, err := loadProject(args[0])
		if err != nil {
			return err
		}
		if runTierHint != "" {
			hint := model.ServiceTier(runTierHint)
			if !hint.Valid() {
				return eris.Errorf("invalid tier hint: %s", runTierHint)
			}
			project.TierHint = hint
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, project)
		if err != nil {
			return eris.Wrap(err, "takeoff run")
		}

		zap.L().Info("takeoff complete",
			zap.String("run_id", result.RunID),
			zap.String("tier", string(result.Tier.Tier)),
			zap.Float64("confidence", result.Confidence),
			zap.Float64("compliance_score", result.Validation.Score),
			zap.Float64("grand_total", result.Pricing.GrandTotal),
		)

		if runOutPath != "" {
			if err := writeJSON(runOutPath, result); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.Report)
		return nil
	},
}

func loadProject(path string) (model.Project, error) {
	var project model.Project
	data, err := os.ReadFile(path)
	if err != nil {
		return project, eris.Wrap(err, "read project file")
	}
	if err := json.Unmarshal(data, &project); err != nil {
		return project, eris.Wrap(err, "parse project file")
	}
	if project.Name == "" && len(project.Pages) > 0 {
		project.Name = project.Pages[0].Filename
	}
	if len(project.Pages) == 0 {
		return project, eris.New("project has no drawing pages")
	}
	return project, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "write output")
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runTierHint, "tier", "", "skip classification and use this tier (residential|commercial|maintenance|industrial|mixed)")
	runCmd.Flags().StringVarP(&runOutPath, "out", "o", "", "write the full result JSON to this path")
	rootCmd.AddCommand(runCmd)
}
