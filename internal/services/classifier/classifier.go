// Package classifier assigns severity tiers and category flags to economic
// events by keyword matching.
package classifier

import (
	"fmt"
	"sort"
	"strings"

	"FinEvent/internal/domain/models"
	"FinEvent/pkg/util"
)

// TierKeyword maps a name fragment to a tier. Order matters: the first
// matching keyword decides the tier.
type TierKeyword struct {
	Keyword string `yaml:"keyword" json:"keyword" validate:"required"`
	Tier    int    `yaml:"tier" json:"tier" validate:"gte=1,lte=4"`
}

// Keywords is the analyst-supplied classification table.
type Keywords struct {
	Tiers []TierKeyword       `yaml:"tiers" json:"tiers"`
	Flags map[string][]string `yaml:"flags" json:"flags"`
}

// Validate rejects tiers outside 1..4 and blank keywords.
func (k Keywords) Validate() error {
	for i, tk := range k.Tiers {
		if strings.TrimSpace(tk.Keyword) == "" {
			return fmt.Errorf("tier keyword %d is blank", i)
		}
		if tk.Tier < 1 || tk.Tier > 4 {
			return fmt.Errorf("tier keyword %q: tier %d out of range 1..4", tk.Keyword, tk.Tier)
		}
	}
	for flag, words := range k.Flags {
		if strings.TrimSpace(flag) == "" {
			return fmt.Errorf("flag with blank name")
		}
		for _, w := range words {
			if strings.TrimSpace(w) == "" {
				return fmt.Errorf("flag %q has a blank keyword", flag)
			}
		}
	}
	return nil
}

type flagGroup struct {
	name  string
	words []string
}

// Classifier holds a compiled keyword table. It is immutable and safe for
// concurrent use.
type Classifier struct {
	tiers []TierKeyword
	flags []flagGroup
	names []string
}

func New(k Keywords) *Classifier {
	c := &Classifier{tiers: make([]TierKeyword, 0, len(k.Tiers))}
	for _, tk := range k.Tiers {
		c.tiers = append(c.tiers, TierKeyword{Keyword: util.NormalizeKey(tk.Keyword), Tier: tk.Tier})
	}

	names := make([]string, 0, len(k.Flags)+1)
	for name := range k.Flags {
		if name != models.FlagTier4 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		words := make([]string, 0, len(k.Flags[name]))
		for _, w := range k.Flags[name] {
			words = append(words, util.NormalizeKey(w))
		}
		c.flags = append(c.flags, flagGroup{name: name, words: words})
	}
	c.names = append(names, models.FlagTier4)
	return c
}

// Flags lists every flag column the classifier produces.
func (c *Classifier) Flags() []string {
	return append([]string(nil), c.names...)
}

// Tier returns the tier of the first keyword contained in name, or the
// default tier.
func (c *Classifier) Tier(name string) int {
	n := util.NormalizeKey(name)
	for _, tk := range c.tiers {
		if strings.Contains(n, tk.Keyword) {
			return tk.Tier
		}
	}
	return models.DefaultTier
}

// FlagsFor evaluates every flag group against name. Tier4 is derived from
// the Tier1..Tier3 flags and overrides any keyword configured for it.
func (c *Classifier) FlagsFor(name string) map[string]bool {
	n := util.NormalizeKey(name)
	out := make(map[string]bool, len(c.names))
	for _, g := range c.flags {
		out[g.name] = containsAny(n, g.words)
	}
	out[models.FlagTier4] = !(out[models.FlagTier1] || out[models.FlagTier2] || out[models.FlagTier3])
	return out
}

// Classify assigns tier and flags to every event. No event is dropped.
func (c *Classifier) Classify(events []models.RawEvent) models.ClassifiedEvents {
	out := make([]models.EventRecord, len(events))
	for i, ev := range events {
		out[i] = models.EventRecord{
			Timestamp: ev.Timestamp,
			Name:      ev.Name,
			Tier:      c.Tier(ev.Name),
			Flags:     c.FlagsFor(ev.Name),
		}
	}
	return models.NewClassifiedEvents(out, c.names)
}

// Classify is a one-shot helper around New(k).Classify.
func Classify(events []models.RawEvent, k Keywords) models.ClassifiedEvents {
	return New(k).Classify(events)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
