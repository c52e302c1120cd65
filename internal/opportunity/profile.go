package opportunity

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Profile describes what the user wants from work. It only biases ranking and
// search queries; nothing here is a hard filter.
type Profile struct {
	MinIncome      int      `mapstructure:"min-income" json:"min_income"`
	MaxHoursWeekly int      `mapstructure:"max-hours-weekly" json:"max_hours_weekly"`
	Skills         []string `mapstructure:"skills" json:"skills"`
	Industries     []string `mapstructure:"industries" json:"industries"`
	RemoteOnly     bool     `mapstructure:"remote-only" json:"remote_only"`
}

// DefaultProfile mirrors the defaults used when no profile file exists.
func DefaultProfile() *Profile {
	return &Profile{
		MinIncome:      100000,
		MaxHoursWeekly: 40,
		RemoteOnly:     true,
	}
}

// LoadProfile reads a profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", path, err)
	}

	profile := DefaultProfile()
	if err := v.Unmarshal(profile); err != nil {
		return nil, fmt.Errorf("decoding profile %q: %w", path, err)
	}

	return profile, nil
}

// Save writes the profile as YAML, creating or replacing the file.
func (p *Profile) Save(path string) error {
	v := viper.New()
	v.Set("min-income", p.MinIncome)
	v.Set("max-hours-weekly", p.MaxHoursWeekly)
	v.Set("skills", p.Skills)
	v.Set("industries", p.Industries)
	v.Set("remote-only", p.RemoteOnly)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing profile %q: %w", path, err)
	}

	return os.Chmod(path, 0o644)
}
