package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wordbox/backend/internal/config"
	"github.com/wordbox/backend/internal/database"
	"github.com/wordbox/backend/internal/vocab"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	importCfg := vocab.DefaultImportConfig()

	cmd := &cobra.Command{
		Use:   "importwords <file.xlsx|file.csv>",
		Short: "Load a word list into the shared vocabulary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importCfg.FilePath = args[0]
			return run(cmd.Context(), importCfg)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&importCfg.SheetName, "sheet", importCfg.SheetName, "worksheet name (xlsx only)")
	flags.StringVar(&importCfg.SourceColumn, "source-col", importCfg.SourceColumn, "column holding the English word")
	flags.StringVar(&importCfg.TargetColumn, "target-col", importCfg.TargetColumn, "column holding the translation")
	flags.StringVar(&importCfg.CategoryColumn, "category-col", importCfg.CategoryColumn, "column holding the category, empty for none")
	flags.IntVar(&importCfg.StartRow, "start-row", importCfg.StartRow, "first data row (1-based)")
	return cmd
}

func run(ctx context.Context, importCfg vocab.ImportConfig) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	res, err := vocab.NewImporter(vocab.NewStore(db), logger.Named("import")).ImportFile(ctx, importCfg)
	if err != nil {
		return err
	}

	for _, e := range res.Errors {
		logger.Warn("row skipped", zap.String("reason", e))
	}
	return nil
}
