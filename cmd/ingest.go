package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/afriplan/takeoff-cli/internal/ingest"
	"github.com/afriplan/takeoff-cli/internal/model"
)

var (
	ingestName    string
	ingestOutPath string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <drawings.pdf>",
	Short: "Convert a drawing-set PDF into a project file",
	Long:  "Extracts per-page OCR text and page rasters from a PDF and writes the project JSON that `run` and the /takeoff endpoint consume. The contractor profile in the output starts at the defaults; edit it before pricing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reader, err := ingest.NewReader(cfg.Ingest)
		if err != nil {
			return err
		}

		pages, err := reader.ReadPages(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "ingest pages")
		}

		project := model.Project{
			Name:       ingestName,
			Pages:      pages,
			Contractor: model.DefaultContractorProfile(),
		}
		if project.Name == "" {
			project.Name = pages[0].Filename
		}

		out := ingestOutPath
		if out == "" {
			out = "project.json"
		}
		if err := writeJSON(out, project); err != nil {
			return err
		}

		zap.L().Info("project file written",
			zap.String("path", out),
			zap.Int("pages", len(pages)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", out, len(pages))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "project name (default: PDF filename)")
	ingestCmd.Flags().StringVarP(&ingestOutPath, "out", "o", "", "output path (default project.json)")
	rootCmd.AddCommand(ingestCmd)
}
