package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinEvent/internal/domain/models"
)

func TestTierFirstMatchWins(t *testing.T) {
	c := New(Keywords{Tiers: []TierKeyword{
		{Keyword: "PPI", Tier: 1},
		{Keyword: "PI", Tier: 3},
	}})

	assert.Equal(t, 1, c.Tier("US PPI m/m"))
	assert.Equal(t, 3, c.Tier("Personal Income (PI)"))

	reversed := New(Keywords{Tiers: []TierKeyword{
		{Keyword: "PI", Tier: 3},
		{Keyword: "PPI", Tier: 1},
	}})
	assert.Equal(t, 3, reversed.Tier("US PPI m/m"), "scan order is caller-significant")
}

func TestTierDefaultsToFour(t *testing.T) {
	c := New(DefaultKeywords())
	assert.Equal(t, models.DefaultTier, c.Tier("Bank Holiday"))
	assert.Equal(t, models.DefaultTier, c.Tier(""))
}

func TestTierMatchIsCaseInsensitiveAndTrimmed(t *testing.T) {
	c := New(DefaultKeywords())
	assert.Equal(t, 1, c.Tier("  us NONFARM payrolls  "))
	assert.Equal(t, 2, c.Tier("ISM Manufacturing pmi"))
	assert.Equal(t, 3, c.Tier("10-Year Note Auction"))
}

func TestNonfarmPayrollsIsTierOne(t *testing.T) {
	ts := time.Date(2024, 3, 8, 8, 30, 0, 0, time.UTC)
	got := Classify([]models.RawEvent{{Timestamp: ts, Name: "US Nonfarm Payrolls"}}, DefaultKeywords())

	require.True(t, got.Classified())
	require.Len(t, got.Events, 1)
	ev := got.Events[0]
	assert.Equal(t, 1, ev.Tier)
	assert.True(t, ev.Flag(models.FlagTier1))
	assert.True(t, ev.Flag(models.FlagMacro))
	assert.False(t, ev.Flag(models.FlagTier4))
	assert.True(t, ev.Timestamp.Equal(ts))
}

func TestTier4FlagIsDerived(t *testing.T) {
	k := Keywords{Flags: map[string][]string{
		models.FlagTier1: {"CPI"},
		models.FlagTier4: {"CPI", "Holiday"},
	}}
	c := New(k)

	cpi := c.FlagsFor("Core CPI")
	assert.True(t, cpi[models.FlagTier1])
	assert.False(t, cpi[models.FlagTier4], "keyword match on Tier4 is overridden")

	holiday := c.FlagsFor("Holiday")
	assert.True(t, holiday[models.FlagTier4])
}

func TestEveryEventGetsOneConsistentTier(t *testing.T) {
	names := []string{
		"CPI y/y", "JOLTs Job Openings", "FOMC Statement", "Fed Chair Powell Speaks",
		"Weekly Jobless Claims", "Retail Sales", "", "PMI", "ADP Employment Change",
		"Challenger Job Cuts", "Unemployment Rate", "Beige Book",
	}
	raw := make([]models.RawEvent, len(names))
	for i, n := range names {
		raw[i] = models.RawEvent{Name: n}
	}

	got := Classify(raw, DefaultKeywords())
	require.Len(t, got.Events, len(names))
	for _, ev := range got.Events {
		assert.GreaterOrEqual(t, ev.Tier, 1, ev.Name)
		assert.LessOrEqual(t, ev.Tier, 4, ev.Name)
		t123 := ev.Flag(models.FlagTier1) || ev.Flag(models.FlagTier2) || ev.Flag(models.FlagTier3)
		assert.Equal(t, !t123, ev.Flag(models.FlagTier4), ev.Name)
	}
}

func TestClassifyExposesFlagColumns(t *testing.T) {
	got := Classify(nil, DefaultKeywords())

	assert.True(t, got.Classified())
	assert.Empty(t, got.Events)
	for _, f := range []string{models.FlagTier1, models.FlagTier2, models.FlagTier3, models.FlagTier4, models.FlagFed, models.FlagMacro} {
		assert.True(t, got.HasFlag(f), f)
	}
}

func TestKeywordsValidate(t *testing.T) {
	assert.NoError(t, DefaultKeywords().Validate())
	assert.Error(t, Keywords{Tiers: []TierKeyword{{Keyword: "CPI", Tier: 5}}}.Validate())
	assert.Error(t, Keywords{Tiers: []TierKeyword{{Keyword: " ", Tier: 1}}}.Validate())
	assert.Error(t, Keywords{Flags: map[string][]string{"Fed": {""}}}.Validate())
}
