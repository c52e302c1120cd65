// Package ranking scores opportunities by compensation per hour of effort.
// It is pure: no I/O, no clock, no randomness.
package ranking

import (
	"sort"

	"github.com/pdj555/job-engine/internal/opportunity"
)

// WeeksPerYear converts weekly hours into annual hours. 50 assumes two weeks
// off, matching how the $/hour figures are quoted to the user.
const WeeksPerYear = 50

const (
	DefaultOfficePenalty      = 0.30
	DefaultWeeklyHoursAssumed = 40
)

// Profile-mismatch flags set by Rank. Presentation marks flagged rows; they
// are never dropped.
const (
	FlagOverMaxHours = "over_max_hours"
	FlagNotRemote    = "not_remote"
)

// Config pins the policy constants the score depends on. Defaults live at
// config load, not here: a zero OfficePenalty is honored as "no penalty" so
// the knob stays fully configurable.
type Config struct {
	// OfficePenalty is the score multiplier complement for explicitly
	// non-remote roles: score *= (1 - OfficePenalty). Unknown remote status
	// is not penalized.
	OfficePenalty float64
	// DefaultWeeklyHours substitutes for missing or zero weekly hours. A
	// non-positive value falls back to DefaultWeeklyHoursAssumed because the
	// formula cannot divide by it.
	DefaultWeeklyHours float64
}

func (c Config) withDefaults() Config {
	if c.DefaultWeeklyHours <= 0 {
		c.DefaultWeeklyHours = DefaultWeeklyHoursAssumed
	}
	return c
}

// Score computes the $/hour efficiency score for one opportunity, or nil when
// the pay is unknown. Unknown pay is unscoreable: nil, never zero, so a
// known-low-pay job still outranks it.
func Score(opp *opportunity.Opportunity, cfg Config) *float64 {
	cfg = cfg.withDefaults()

	if opp.AnnualPay == nil {
		return nil
	}

	hours := cfg.DefaultWeeklyHours
	if opp.WeeklyHours != nil && *opp.WeeklyHours > 0 {
		hours = *opp.WeeklyHours
	}

	score := *opp.AnnualPay / (hours * WeeksPerYear)

	if opp.Remote != nil && !*opp.Remote {
		score *= 1 - cfg.OfficePenalty
	}

	return &score
}

// Rank fills every Score field, flags profile mismatches, and sorts the list
// descending by score. Unscoreable items sort last. The sort is stable, so
// ties and the nil-score tail keep discovery order.
func Rank(opps *opportunity.Opportunities, profile *opportunity.Profile, cfg Config) {
	cfg = cfg.withDefaults()

	for _, opp := range opps.Items {
		opp.Score = Score(opp, cfg)
		opp.Flags = flagMismatches(opp, profile)
	}

	sort.SliceStable(opps.Items, func(i, j int) bool {
		a, b := opps.Items[i].Score, opps.Items[j].Score
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

func flagMismatches(opp *opportunity.Opportunity, profile *opportunity.Profile) []string {
	if profile == nil {
		return nil
	}

	var flags []string
	if profile.MaxHoursWeekly > 0 && opp.WeeklyHours != nil && *opp.WeeklyHours > float64(profile.MaxHoursWeekly) {
		flags = append(flags, FlagOverMaxHours)
	}
	if profile.RemoteOnly && opp.Remote != nil && !*opp.Remote {
		flags = append(flags, FlagNotRemote)
	}
	return flags
}
