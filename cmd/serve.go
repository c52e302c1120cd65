package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdj555/job-engine/internal/api"
	"github.com/pdj555/job-engine/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	port := config.API.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}

	eng, providers, err := buildEngine(ctx, config, logger)
	if err != nil {
		return err
	}

	profile := loadProfile(config, "", logger)
	server := api.NewServer(eng, profile, config.ProfileFile, providers, logger)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("starting the api server",
		zap.String("addr", addr),
		zap.Strings("providers", providers),
	)

	return server.Start(addr)
}
