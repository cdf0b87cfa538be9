package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/trackledger/internal/cache"
	"github.com/hetulpatel/trackledger/internal/llm"
	"github.com/hetulpatel/trackledger/internal/logging"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
	"github.com/hetulpatel/trackledger/internal/suggest"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	threshold := flag.Float64("threshold", suggest.DefaultThreshold, "minimum similarity score")
	validate := flag.Bool("validate", false, "double-check pairings with the LLM (requires LLM_API_KEY)")
	flag.Parse()

	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		log.Fatalf("list unassigned: %v", err)
	}

	suggestions := suggest.Pair(pool, *threshold)
	if len(suggestions) == 0 {
		logging.Infof("[suggest] nothing to pair across %d unassigned transaction(s)", len(pool))
		return
	}

	if *validate {
		validator := mustValidator()
		for i := range suggestions {
			verdict, err := validator.Validate(ctx, suggestions[i])
			if err != nil {
				logging.Errorf("[suggest] verdict for %q / %q: %v",
					suggestions[i].ChainLabel, suggestions[i].ExchangeLabel, err)
				continue
			}
			suggestions[i].Verdict = verdict
		}
	}

	b, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	fmt.Println(string(b))
}

func mustValidator() *suggest.Validator {
	client, err := llm.New(llm.Config{
		APIKey:  os.Getenv("LLM_API_KEY"),
		BaseURL: os.Getenv("LLM_BASE_URL"),
		Model:   os.Getenv("LLM_MODEL"),
	})
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}

	var verdicts cache.VerdictCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		verdicts, err = cache.NewRedisVerdictCache(addr, os.Getenv("REDIS_PASSWORD"), 0, 0, "")
		if err != nil {
			log.Fatalf("verdict cache: %v", err)
		}
	}

	validator, err := suggest.NewValidator(client, verdicts)
	if err != nil {
		log.Fatalf("validator: %v", err)
	}
	return validator
}
