package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdj555/job-engine/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch <query>",
	Short: "Re-run a search on a schedule, feeding the memory store",
	Long: "watch repeats the search on a cron schedule. With memory enabled, each run\n" +
		"stores what it found and later runs only surface opportunities you have not\n" +
		"seen before.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("every", "0 */6 * * *", "cron schedule for re-running the search")
}

func runWatch(cmd *cobra.Command, query string) error {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	eng, providers, err := buildEngine(ctx, config, logger)
	if err != nil {
		return err
	}

	profile := loadProfile(config, "", logger)

	runOnce := func() {
		// Each scheduled run gets its own deadline from --timeout.
		runCtx, cancel := commandContext()
		defer cancel()

		result, err := eng.Find(runCtx, query, profile, false)
		if err != nil {
			logger.Warn("scheduled search failed", zap.String("query", query), zap.Error(err))
			return
		}

		logger.Info("scheduled search completed",
			zap.String("query", query),
			zap.Int("results", result.Opportunities.Len()),
			zap.Int("warnings", len(result.Warnings)),
		)

		for i, opp := range result.Opportunities.Top(3) {
			score := "?"
			if opp.Score != nil {
				score = fmt.Sprintf("%.0f", *opp.Score)
			}
			logger.Info("top result",
				zap.Int("rank", i+1),
				zap.String("title", opp.Title),
				zap.String("url", opp.URL),
				zap.String("dollars_per_hour", score),
			)
		}
	}

	schedule, _ := cmd.Flags().GetString("every")

	c := cron.New()
	if _, err := c.AddFunc(schedule, runOnce); err != nil {
		return err
	}

	logger.Info("starting watch",
		zap.String("query", query),
		zap.String("schedule", schedule),
		zap.Strings("providers", providers),
	)

	// First run immediately, then on schedule.
	runOnce()
	c.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("stopping watch")
	<-c.Stop().Done()
	return nil
}
