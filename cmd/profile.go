package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdj555/job-engine/internal/logger"
	"github.com/pdj555/job-engine/internal/opportunity"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Store the profile used to bias search and ranking",
	RunE:  runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.Flags().Int("income", 0, "minimum annual income target")
	profileCmd.Flags().Int("hours", 0, "maximum hours per week")
	profileCmd.Flags().String("skills", "", "comma-separated skills")
	profileCmd.Flags().String("industries", "", "comma-separated industries")
	profileCmd.Flags().Bool("remote-only", true, "only remote opportunities")
	profileCmd.Flags().String("file", "", "profile file path (default from config)")
}

func runProfile(cmd *cobra.Command, _ []string) error {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = config.ProfileFile
	}

	// Start from the stored profile so a partial update keeps other fields.
	profile, err := opportunity.LoadProfile(path)
	if err != nil {
		profile = opportunity.DefaultProfile()
	}

	if income, _ := cmd.Flags().GetInt("income"); income > 0 {
		profile.MinIncome = income
	}
	if hours, _ := cmd.Flags().GetInt("hours"); hours > 0 {
		profile.MaxHoursWeekly = hours
	}
	if skills, _ := cmd.Flags().GetString("skills"); skills != "" {
		profile.Skills = splitList(skills)
	}
	if industries, _ := cmd.Flags().GetString("industries"); industries != "" {
		profile.Industries = splitList(industries)
	}
	if cmd.Flags().Changed("remote-only") {
		profile.RemoteOnly, _ = cmd.Flags().GetBool("remote-only")
	}

	if err := profile.Save(path); err != nil {
		return err
	}

	logger.Info("profile stored", zap.String("path", path))

	pretty, _ := json.MarshalIndent(profile, "", "  ")
	fmt.Println(string(pretty))
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
