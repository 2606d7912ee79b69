package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salscrudato/product-console/internal/importer"
)

var (
	importPath string
	exportPath string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import coverages from an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		result, err := importer.New(st).ImportCoverages(ctx, importPath)
		if err != nil {
			return eris.Wrap(err, "import coverages")
		}

		for _, p := range result.Problems {
			zap.L().Warn("skipped row", zap.String("problem", p))
		}
		zap.L().Info("import complete",
			zap.Int64("inserted", result.Inserted),
			zap.Int("skipped", result.Skipped),
			zap.String("file", importPath),
		)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all coverages to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := importer.New(st).ExportCoverages(ctx, exportPath); err != nil {
			return eris.Wrap(err, "export coverages")
		}

		zap.L().Info("export complete", zap.String("file", exportPath))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to XLSX workbook (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringVar(&exportPath, "file", "coverages.xlsx", "output XLSX path")
	rootCmd.AddCommand(exportCmd)
}
