package opportunity

import (
	"encoding/json"
	"os"
	"testing"
)

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	opps := &Opportunities{Items: []*Opportunity{
		{Title: "first", URL: "https://dup", Source: SourceBrave},
		{Title: "unique", URL: "https://unique"},
		{Title: "second", URL: "https://dup", Source: SourcePerplexity},
	}}

	dropped := opps.Dedupe()

	if opps.Len() != 2 {
		t.Fatalf("expected 2 items after dedupe, got %d", opps.Len())
	}
	if opps.Items[0].Title != "first" {
		t.Fatalf("the first occurrence must survive, got %q", opps.Items[0].Title)
	}
	if len(dropped) != 1 || dropped[0] != "https://dup" {
		t.Fatalf("expected the duplicate URL reported, got %v", dropped)
	}
}

func TestDedupeEmptyList(t *testing.T) {
	opps := &Opportunities{}
	if dropped := opps.Dedupe(); len(dropped) != 0 {
		t.Fatalf("expected no drops, got %v", dropped)
	}
}

func TestFindByURL(t *testing.T) {
	opps := &Opportunities{Items: []*Opportunity{
		{Title: "a", URL: "https://a"},
		{Title: "b", URL: "https://b"},
	}}

	if got := opps.FindByURL("https://b"); got == nil || got.Title != "b" {
		t.Fatalf("expected to find b, got %v", got)
	}
	if got := opps.FindByURL("https://missing"); got != nil {
		t.Fatalf("expected nil for a missing URL, got %v", got)
	}
}

func TestTopAndTruncate(t *testing.T) {
	build := func() *Opportunities {
		return &Opportunities{Items: []*Opportunity{
			{URL: "a"}, {URL: "b"}, {URL: "c"},
		}}
	}

	opps := build()
	if top := opps.Top(2); len(top) != 2 || top[0].URL != "a" {
		t.Fatalf("unexpected top slice: %v", top)
	}
	if top := opps.Top(10); len(top) != 3 {
		t.Fatalf("top beyond length must clamp, got %d", len(top))
	}
	if top := opps.Top(-1); len(top) != 0 {
		t.Fatalf("negative top must be empty, got %d", len(top))
	}

	opps.Truncate(2)
	if opps.Len() != 2 {
		t.Fatalf("expected 2 after truncate, got %d", opps.Len())
	}
	opps.Truncate(10)
	if opps.Len() != 2 {
		t.Fatalf("truncate beyond length must be a no-op, got %d", opps.Len())
	}
}

func TestDumpToTmpFile(t *testing.T) {
	opps := &Opportunities{Items: []*Opportunity{
		{Title: "a", URL: "https://a", AnnualPay: Float(120000), Score: Float(60)},
	}}

	path, err := opps.DumpToTmpFile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}

	var decoded Opportunities
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}
	if decoded.Len() != 1 || decoded.Items[0].URL != "https://a" {
		t.Fatalf("dump lost data: %+v", decoded)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	path := t.TempDir() + "/profile.yaml"

	saved := &Profile{
		MinIncome:      150000,
		MaxHoursWeekly: 25,
		Skills:         []string{"go", "sql"},
		Industries:     []string{"fintech"},
		RemoteOnly:     true,
	}
	if err := saved.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.MinIncome != saved.MinIncome || loaded.MaxHoursWeekly != saved.MaxHoursWeekly {
		t.Fatalf("numeric fields lost: %+v", loaded)
	}
	if len(loaded.Skills) != 2 || loaded.Skills[0] != "go" {
		t.Fatalf("skills lost: %+v", loaded.Skills)
	}
	if !loaded.RemoteOnly {
		t.Fatalf("remote_only lost")
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	if _, err := LoadProfile(t.TempDir() + "/nope.yaml"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
