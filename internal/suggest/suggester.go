// Package suggest proposes position groupings for unassigned transactions by
// pairing chain and exchange activity that looks like the same real-world
// market. Suggestions are advisory: creating the position stays an explicit
// operator action through the position builder.
package suggest

import (
	"sort"

	"github.com/hetulpatel/trackledger/internal/ledger"
)

// DefaultThreshold is the minimum score for a pairing to be suggested.
const DefaultThreshold = 85

// Suggestion pairs one chain market's unassigned transactions with one
// exchange market's, scored by name similarity.
type Suggestion struct {
	ChainLabel    string          `json:"chain_label"`
	ExchangeLabel string          `json:"exchange_label"`
	Score         float64         `json:"score"`
	ChainRefs     []ledger.TxRef  `json:"chain_refs"`
	ExchangeRefs  []ledger.TxRef  `json:"exchange_refs"`
	Verdict       *VerdictOutcome `json:"verdict,omitempty"`
}

// Refs returns the combined member set a created position would claim.
func (s Suggestion) Refs() []ledger.TxRef {
	refs := make([]ledger.TxRef, 0, len(s.ChainRefs)+len(s.ExchangeRefs))
	refs = append(refs, s.ChainRefs...)
	return append(refs, s.ExchangeRefs...)
}

// Pair groups the unassigned transactions of each venue by market label,
// scores every cross-venue label pair, and returns the pairings at or above
// threshold, best first. Transactions of the same venue never pair with each
// other.
func Pair(unassigned []ledger.Transaction, threshold float64) []Suggestion {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	chainGroups := groupByLabel(unassigned, ledger.VenueChain)
	exchangeGroups := groupByLabel(unassigned, ledger.VenueExchange)

	var out []Suggestion
	for chainLabel, chainRefs := range chainGroups {
		for exchangeLabel, exchangeRefs := range exchangeGroups {
			score := Score(chainLabel, exchangeLabel)
			if score < threshold {
				continue
			}
			out = append(out, Suggestion{
				ChainLabel:    chainLabel,
				ExchangeLabel: exchangeLabel,
				Score:         score,
				ChainRefs:     chainRefs,
				ExchangeRefs:  exchangeRefs,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChainLabel < out[j].ChainLabel
	})
	return out
}

func groupByLabel(txs []ledger.Transaction, venue ledger.Venue) map[string][]ledger.TxRef {
	groups := make(map[string][]ledger.TxRef)
	for _, t := range txs {
		if t.Venue != venue || t.MarketLabel == "" {
			continue
		}
		groups[t.MarketLabel] = append(groups[t.MarketLabel], t.Ref())
	}
	return groups
}
