package opportunity

import (
	"encoding/json"
	"os"
)

// Sources an opportunity can come from.
const (
	SourceBrave      = "brave"
	SourcePerplexity = "perplexity"
	SourceOther      = "other"
)

// Opportunity is one discovered income opportunity. The Aggregator creates it
// with Title/URL/RawText/Source, the extraction stage fills pay/hours/remote,
// ranking fills Score. Pointer fields stay nil when the value is unknown.
type Opportunity struct {
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	URL     string `json:"url"`
	// RawText is the snippet the extraction prompt ran against, kept for audit.
	RawText string `json:"raw_text,omitempty"`

	AnnualPay   *float64 `json:"annual_pay"`
	WeeklyHours *float64 `json:"weekly_hours"`
	Remote      *bool    `json:"remote"`

	// Score is derived-only. It is set exactly once by the ranking stage and
	// must never be written anywhere else.
	Score *float64 `json:"score"`

	Source string `json:"source"`

	// Flags mark profile mismatches (over max hours, office-only for a
	// remote-only profile). Flagged opportunities are kept, not dropped.
	Flags []string `json:"flags,omitempty"`

	// Research holds the deep-research annotation for top-ranked items.
	Research string `json:"research,omitempty"`
}

// Opportunities is an ordered list of opportunities. Order is discovery order
// until ranking re-sorts it.
type Opportunities struct {
	Items []*Opportunity
}

func (o *Opportunities) Len() int {
	return len(o.Items)
}

func (o *Opportunities) FindByURL(url string) *Opportunity {
	for _, item := range o.Items {
		if item.URL == url {
			return item
		}
	}
	return nil
}

// Dedupe removes items with a URL already seen earlier in the list, keeping
// the first occurrence. Returns the URLs that were dropped.
func (o *Opportunities) Dedupe() []string {
	seen := make(map[string]struct{}, len(o.Items))
	kept := make([]*Opportunity, 0, len(o.Items))
	var dropped []string

	for _, item := range o.Items {
		if _, ok := seen[item.URL]; ok {
			dropped = append(dropped, item.URL)
			continue
		}
		seen[item.URL] = struct{}{}
		kept = append(kept, item)
	}

	o.Items = kept
	return dropped
}

// Top returns at most n leading items without copying the underlying values.
func (o *Opportunities) Top(n int) []*Opportunity {
	if n < 0 {
		n = 0
	}
	if n > len(o.Items) {
		n = len(o.Items)
	}
	return o.Items[:n]
}

// Truncate drops everything after the first n items.
func (o *Opportunities) Truncate(n int) {
	if n >= 0 && n < len(o.Items) {
		o.Items = o.Items[:n]
	}
}

func (o *Opportunities) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "opportunities_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// Float returns a pointer to v. Convenience for building literals.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
