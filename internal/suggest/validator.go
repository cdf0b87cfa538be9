package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hetulpatel/trackledger/internal/cache"
	"github.com/hetulpatel/trackledger/internal/hashutil"
	"github.com/hetulpatel/trackledger/internal/llm"
)

const systemPrompt = "You are a strict reviewer of prediction-market bookkeeping. Determine whether two market names from different venues refer to the same real-world event and outcome. Respond only with JSON."

// VerdictOutcome is the structured LLM answer for one suggestion.
type VerdictOutcome struct {
	SameEvent bool   `json:"SameEvent"`
	Reason    string `json:"Reason"`
	Cached    bool   `json:"-"`
}

// Validator double-checks fuzzy pairings with an LLM before they reach the
// operator. Verdicts are cached by label digest so repeated runs over the
// same unassigned pool cost nothing.
type Validator struct {
	llm   *llm.Client
	cache cache.VerdictCache
}

func NewValidator(client *llm.Client, verdictCache cache.VerdictCache) (*Validator, error) {
	if client == nil {
		return nil, fmt.Errorf("suggest: llm client is required")
	}
	return &Validator{llm: client, cache: verdictCache}, nil
}

// Validate returns the verdict for one suggestion, consulting the cache
// first. Only negative-or-positive certainty is cached; transport errors are
// returned to the caller.
func (v *Validator) Validate(ctx context.Context, s Suggestion) (*VerdictOutcome, error) {
	key := verdictKey(s.ChainLabel, s.ExchangeLabel)
	if v.cache != nil {
		if verdict, ok, err := v.cache.Get(ctx, key); err == nil && ok {
			return &VerdictOutcome{SameEvent: verdict, Cached: true}, nil
		}
	}

	userPrompt := strings.Join([]string{
		"Two prediction markets were matched by name similarity while reconciling a trader's history.",
		"One runs on a Cardano-native market, the other on a centralized exchange.",
		"Decide whether they describe the same real-world event with the same binary outcome.",
		"If the timing, the entity, or the definition of the outcome differ, answer false. If unsure, answer false.",
		"Return EXACTLY this JSON format:\n{\n  \"SameEvent\": true|false,\n  \"Reason\": \"short explanation\"\n}",
		fmt.Sprintf("Chain market name: %q", s.ChainLabel),
		fmt.Sprintf("Exchange market name: %q", s.ExchangeLabel),
	}, "\n")

	raw, err := v.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("suggest: llm call: %w", err)
	}
	outcome, err := parseVerdict(raw)
	if err != nil {
		return nil, fmt.Errorf("suggest: parse verdict: %w", err)
	}

	if v.cache != nil {
		_ = v.cache.Set(ctx, key, outcome.SameEvent)
	}
	return outcome, nil
}

// verdictKey is order-independent over the two labels.
func verdictKey(a, b string) string {
	parts := []string{a, b}
	sort.Strings(parts)
	return hashutil.HashStrings(parts...)
}

func parseVerdict(raw string) (*VerdictOutcome, error) {
	// models occasionally wrap the JSON in a code fence
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in %q", raw)
	}

	var outcome VerdictOutcome
	if err := json.Unmarshal([]byte(raw[start:end+1]), &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}
