package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdj555/job-engine/internal/engine"
	"github.com/pdj555/job-engine/internal/logger"
	"github.com/pdj555/job-engine/internal/opportunity"
	"github.com/pdj555/job-engine/internal/ui"
)

const (
	PromptDone        = "Done"
	PromptDumpToFile  = "Dump results to file"
	promptResearchTag = "Research: "
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for opportunities and rank them by $/hour",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Bool("quick", false, "skip memory and deep research, just search and rank")
	searchCmd.Flags().String("profile", "", "path to a profile file (default from config)")
	searchCmd.Flags().IntP("limit", "n", 0, "max results (default from config)")
	searchCmd.Flags().Bool("no-input", false, "do not prompt after rendering results")
}

func runSearch(cmd *cobra.Command, query string) error {
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

	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		config.Search.Limit = limit
	}

	eng, providers, err := buildEngine(ctx, config, logger)
	if err != nil {
		return err
	}

	profilePath, _ := cmd.Flags().GetString("profile")
	profile := loadProfile(config, profilePath, logger)

	quick, _ := cmd.Flags().GetBool("quick")

	logger.Info("starting the search",
		zap.String("query", query),
		zap.Strings("providers", providers),
		zap.Bool("quick", quick),
	)

	result, err := eng.Find(ctx, query, profile, quick)
	if err != nil {
		ui.RenderWarnings(result.Warnings)
		return fmt.Errorf("search failed: %w", err)
	}

	ui.RenderWarnings(result.Warnings)

	if result.Opportunities.Len() == 0 {
		logger.Info("nothing found", zap.String("hint", "try different keywords"))
		return nil
	}

	ui.RenderTable(result.Opportunities)
	ui.RenderTopPicks(result.Opportunities)

	for _, opp := range result.Opportunities.Items {
		if opp.Research != "" {
			ui.RenderResearch(opp.Title, opp.Research)
		}
	}

	if noInput, _ := cmd.Flags().GetBool("no-input"); noInput || quick {
		return nil
	}

	return interactLoop(ctx, eng, logger, result.Opportunities)
}

// interactLoop offers a deep dive on any listed result until the user is done.
func interactLoop(ctx context.Context, eng *engine.Engine, logger *zap.Logger, opps *opportunity.Opportunities) error {
	for {
		items := []string{PromptDone, PromptDumpToFile}
		for _, opp := range opps.Items {
			items = append(items, promptResearchTag+opp.URL)
		}

		prompt := promptui.Select{
			Label: "Anything else?",
			Items: items,
		}

		_, action, err := prompt.Run()
		if err != nil {
			// ^C at the prompt is a normal way out.
			if errors.Is(err, promptui.ErrInterrupt) {
				return nil
			}
			return err
		}

		switch {
		case action == PromptDone:
			return nil

		case action == PromptDumpToFile:
			filename, err := opps.DumpToTmpFile()
			if err != nil {
				return fmt.Errorf("dump results to file: %w", err)
			}
			logger.Info("dumped results to file", zap.String("filename", filename))

		case strings.HasPrefix(action, promptResearchTag):
			url := strings.TrimPrefix(action, promptResearchTag)
			opp := opps.FindByURL(url)
			if opp == nil {
				return fmt.Errorf("there is no such opportunity: %s", url)
			}

			answer, err := eng.Research(ctx, opp.Title, opp.Company, opp.URL)
			if err != nil {
				logger.Warn("research failed", zap.String("url", url), zap.Error(err))
				continue
			}
			opp.Research = answer
			ui.RenderResearch(opp.Title, answer)
		}
	}
}
