package classifier

import "FinEvent/internal/domain/models"

var (
	tier1Events = []string{"CPI", "PPI", "PCE", "Inflation", "NFP", "Unemployment", "Payrolls"}
	tier2Events = []string{"JOLTs", "ADP", "PMI"}
	tier3Events = []string{
		"Consumer Confidence",
		"Weekly Jobless Claims",
		"Industrial Production",
		"Challenger Job Cuts",
		"Auction",
	}
	fedEvents = []string{"FOMC", "Speech", "Beige", "Speak"}
)

// DefaultKeywords returns the stock US macro calendar table.
func DefaultKeywords() Keywords {
	k := Keywords{Flags: make(map[string][]string)}

	var macro []string
	for tier, words := range [][]string{tier1Events, tier2Events, tier3Events} {
		for _, w := range words {
			k.Tiers = append(k.Tiers, TierKeyword{Keyword: w, Tier: tier + 1})
		}
		macro = append(macro, words...)
	}

	k.Flags[models.FlagMacro] = macro
	k.Flags[models.FlagTier1] = append([]string(nil), tier1Events...)
	k.Flags[models.FlagTier2] = append([]string(nil), tier2Events...)
	k.Flags[models.FlagTier3] = append([]string(nil), tier3Events...)
	k.Flags[models.FlagFed] = append([]string(nil), fedEvents...)
	return k
}
