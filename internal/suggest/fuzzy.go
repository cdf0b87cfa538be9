package suggest

import (
	"sort"
	"strings"
	"unicode"
)

// Market names rarely say the same thing twice the same way across venues
// ("Zohran Mamdani wins NYC" vs "NYC Mayor: Zohran"), so scoring combines a
// token-order-insensitive edit-distance ratio with a bonus for shared focus
// terms, mirroring how operators eyeball the pairing.

// defaultKeywordBonus is added to the ratio when both names mention a shared
// focus term.
const defaultKeywordBonus = 20

// focusTerms are entities that frequently anchor markets on both venues. A
// shared term is a strong hint two differently-worded names mean one event.
var focusTerms = []string{
	"bitcoin", "ethereum", "cardano", "solana",
	"trump", "biden", "harris", "zohran", "mamdani", "cuomo",
	"fed", "rate cut", "cpi", "recession",
	"super bowl", "world series", "nba finals", "stanley cup",
	"premier league", "champions league", "world cup",
	"oscar", "grammy", "eurovision", "time person of the year",
	"mayor", "president", "prime minister", "election",
}

// Score rates the similarity of two market names on a 0-100+ scale. It is
// symmetric, and identical names (up to token order and case) score 100.
func Score(a, b string) float64 {
	score := tokenSortRatio(a, b)
	if sharedFocusTerm(a, b) {
		score += defaultKeywordBonus
	}
	return score
}

func sharedFocusTerm(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, term := range focusTerms {
		if strings.Contains(la, term) && strings.Contains(lb, term) {
			return true
		}
	}
	return false
}

// tokenSortRatio is the edit-distance similarity (0-100) of the two names
// after lowercasing, stripping punctuation, and sorting tokens.
func tokenSortRatio(a, b string) float64 {
	sa, sb := sortedTokens(a), sortedTokens(b)
	if sa == "" && sb == "" {
		return 0
	}
	dist := levenshtein(sa, sb)
	longest := max(len(sa), len(sb))
	return 100 * (1 - float64(dist)/float64(longest))
}

func sortedTokens(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
