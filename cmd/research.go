package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdj555/job-engine/internal/logger"
	"github.com/pdj555/job-engine/internal/ui"
)

var researchCmd = &cobra.Command{
	Use:   "research <url>",
	Short: "Deep dive on a specific opportunity URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResearch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(researchCmd)

	researchCmd.Flags().String("title", "", "opportunity title, improves research quality")
	researchCmd.Flags().String("company", "", "company name, improves research quality")
}

func runResearch(cmd *cobra.Command, url string) error {
	ctx, cancel := commandContext()
	defer cancel()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	eng, _, err := buildEngine(ctx, config, logger)
	if err != nil {
		return err
	}

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = url
	}
	company, _ := cmd.Flags().GetString("company")

	logger.Info("starting research", zap.String("url", url))

	answer, err := eng.Research(ctx, title, company, url)
	if err != nil {
		return err
	}

	ui.RenderResearch(title, answer)
	return nil
}
