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
	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/cache"
	"github.com/hetulpatel/trackledger/internal/ledger"
	"github.com/hetulpatel/trackledger/internal/logging"
	"github.com/hetulpatel/trackledger/internal/pricefeed"
	"github.com/hetulpatel/trackledger/internal/report"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
	"github.com/hetulpatel/trackledger/internal/valuation"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	unassigned := flag.Bool("unassigned", false, "list the unassigned pool instead of positions")
	venue := flag.String("venue", "", "filter the unassigned pool by venue (chain|exchange)")
	positionID := flag.String("position", "", "report a single position by id")
	summary := flag.Bool("summary", false, "print the portfolio summary")
	cashUSD := flag.String("cash-usd", "0", "exchange cash balance for the summary")
	cashADA := flag.String("cash-ada", "0", "chain cash balance for the summary")
	flag.Parse()

	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	feed := buildFeed()
	svc := report.NewService(store, valuation.NewEngine(feed), feed)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *unassigned:
		v, err := ledgerVenue(*venue)
		if err != nil {
			log.Fatal(err)
		}
		txs, err := svc.Unassigned(ctx, v)
		if err != nil {
			log.Fatalf("list unassigned: %v", err)
		}
		printJSON(txs)
	case *positionID != "":
		rep, err := svc.Position(ctx, *positionID)
		if err != nil {
			log.Fatalf("report position: %v", err)
		}
		printJSON(rep)
	case *summary:
		usd, err := decimal.NewFromString(*cashUSD)
		if err != nil {
			log.Fatalf("parse -cash-usd: %v", err)
		}
		ada, err := decimal.NewFromString(*cashADA)
		if err != nil {
			log.Fatalf("parse -cash-ada: %v", err)
		}
		sum, err := svc.Summarize(ctx, usd, ada)
		if err != nil {
			log.Fatalf("summarize: %v", err)
		}
		printJSON(sum)
	default:
		reports, err := svc.Positions(ctx)
		if err != nil {
			log.Fatalf("report positions: %v", err)
		}
		printJSON(reports)
	}
}

// buildFeed pins rates from ADA_USD_RATE. The live feed client is wired in by
// the deployment; reporting falls back to a pinned rate so realized PnL and
// conversions still work offline. An optional redis cache sits in front.
func buildFeed() pricefeed.Feed {
	static := pricefeed.Static{}
	if raw := os.Getenv("ADA_USD_RATE"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			log.Fatalf("parse ADA_USD_RATE: %v", err)
		}
		static[pricefeed.PairKey(ledger.CurrencyADA, ledger.CurrencyUSD)] = rate
	}

	var feed pricefeed.Feed = pricefeed.NewBounded(static, 5*time.Second)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rateCache, err := cache.NewRedisRateCache(addr, os.Getenv("REDIS_PASSWORD"), 0, 5*time.Minute, "")
		if err != nil {
			log.Fatalf("rate cache: %v", err)
		}
		feed = pricefeed.NewCached(feed, rateCache)
	}
	return feed
}

func ledgerVenue(s string) (ledger.Venue, error) {
	if s == "" {
		return "", nil
	}
	return ledger.ParseVenue(s)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	fmt.Println(string(b))
}
