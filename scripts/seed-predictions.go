//go:build ignore

// seed-predictions.go - Import AI analyses from a CSV export
//
// The CSV carries one row per event with columns event_id, event_title and
// summary_and_calibration_json. The JSON column comes out of a spreadsheet
// export and is frequently broken (bare percent values, unescaped quotes
// inside string values), so it is repaired before parsing. Matched cards get
// their stored predictions replaced; rows without a matching card are
// reported and skipped.
//
// Usage:
//   go run scripts/seed-predictions.go -config config.yaml -csv polymarket_analyses_summary1.csv

package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/predictionlabs/prediction-oracle/pkg/analyzer"
	"github.com/predictionlabs/prediction-oracle/pkg/config"
	"github.com/predictionlabs/prediction-oracle/pkg/market"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
	"github.com/predictionlabs/prediction-oracle/pkg/pgutil"
)

var (
	spConfigPath = flag.String("config", "config.yaml", "Path to config file")
	spCSVPath    = flag.String("csv", "polymarket_analyses_summary1.csv", "Path to the analyses CSV")
)

// Bare percent values and unescaped quotes inside string values are the two
// recurring defects in the export.
var (
	barePercentRe = regexp.MustCompile(`:\s*(\d+\.?\d*)%`)
	openQuoteRe   = regexp.MustCompile(`([a-zA-Z]) "([A-Za-z])`)
	closeQuoteRe  = regexp.MustCompile(`([a-zA-Z])" ([a-z])`)
	closeParenRe  = regexp.MustCompile(`([a-zA-Z])" \(`)
	closeCommaRe  = regexp.MustCompile(`([a-zA-Z])",`)
)

type seedMarket struct {
	Question            *string `json:"question"`
	OriginalOdds        any     `json:"original_odds"`
	AICalibratedOddsPct any     `json:"ai_calibrated_odds_pct"`
}

type seedAnalysis struct {
	ExecutiveSummary string                `json:"executive_summary"`
	Markets          map[string]seedMarket `json:"markets"`
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*spConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store := marketstore.NewStore(db)
	ctx := context.Background()

	rows, err := readRows(*spCSVPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Read %d rows from %s\n", len(rows), *spCSVPath)

	cards, err := store.ListCards(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list cards: %v\n", err)
		os.Exit(1)
	}
	cardIDs := make(map[string]int64, len(cards))
	for _, card := range cards {
		cardIDs[card.PolymarketID] = card.ID
	}

	var (
		predictions []*market.Prediction
		unmatched   []string
		jsonErrors  int
	)
	for _, row := range rows {
		cardID, ok := cardIDs[row.eventID]
		if !ok {
			unmatched = append(unmatched, row.eventID)
			continue
		}

		fixed := fixJSONString(row.rawJSON)
		var doc seedAnalysis
		if err := json.Unmarshal([]byte(fixed), &doc); err != nil {
			fmt.Printf("  ✗ JSON parse failed (event_id=%s): %v\n", row.eventID, err)
			fmt.Printf("    near: ...%s...\n", errorContext(fixed, err))
			jsonErrors++
			continue
		}

		pred, err := buildPrediction(cardID, &doc)
		if err != nil {
			fmt.Printf("  ✗ Skipping event_id=%s: %v\n", row.eventID, err)
			jsonErrors++
			continue
		}
		predictions = append(predictions, pred)
	}

	if len(unmatched) > 0 {
		preview := unmatched
		if len(preview) > 10 {
			preview = preview[:10]
		}
		fmt.Printf("  ✗ No card for %d event ids: %s\n", len(unmatched), strings.Join(preview, ", "))
	}

	fmt.Println("\nImport summary:")
	fmt.Printf("  CSV rows:        %d\n", len(rows))
	fmt.Printf("  matched cards:   %d\n", len(predictions))
	fmt.Printf("  missing cards:   %d\n", len(unmatched))
	fmt.Printf("  parse failures:  %d\n", jsonErrors)

	if len(predictions) == 0 {
		fmt.Println("\nNothing to import")
		return
	}

	if err := store.ReplacePredictions(ctx, predictions); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to import predictions: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n✓ Imported %d predictions\n", len(predictions))
}

type seedRow struct {
	eventID string
	rawJSON string
}

func readRows(path string) ([]seedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[strings.TrimSpace(name)] = i
	}
	idIdx, ok := columns["event_id"]
	jsonIdx, ok2 := columns["summary_and_calibration_json"]
	if !ok || !ok2 {
		return nil, fmt.Errorf("need event_id and summary_and_calibration_json columns, got %v", records[0])
	}

	rows := make([]seedRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) <= idIdx || len(record) <= jsonIdx {
			continue
		}
		rows = append(rows, seedRow{eventID: record[idIdx], rawJSON: record[jsonIdx]})
	}
	return rows, nil
}

// buildPrediction reduces one analysis document to the stored prediction
// shape: the headline comes from the market with the highest original odds,
// and raw_analysis keeps every market normalized to the analyzer's format.
func buildPrediction(cardID int64, doc *seedAnalysis) (*market.Prediction, error) {
	outcome := "N/A"
	if len(doc.Markets) > 0 {
		ids := make([]string, 0, len(doc.Markets))
		for id := range doc.Markets {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		bestID := ids[0]
		for _, id := range ids[1:] {
			if toFloat(doc.Markets[id].OriginalOdds) > toFloat(doc.Markets[bestID].OriginalOdds) {
				bestID = id
			}
		}

		best := doc.Markets[bestID]
		question := "Unknown"
		if best.Question != nil {
			question = *best.Question
		}
		outcome = fmt.Sprintf("%.1f%% - %.100s", parseOdds(best.AICalibratedOddsPct), question)
	}

	raw := make(map[string]*analyzer.RawMarketAnalysis, len(doc.Markets))
	for id, m := range doc.Markets {
		raw[id] = &analyzer.RawMarketAnalysis{
			Question:            m.Question,
			OriginalOdds:        toFloatPtr(m.OriginalOdds),
			AICalibratedOddsPct: parseOdds(m.AICalibratedOddsPct),
		}
	}
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal raw analysis: %w", err)
	}

	summary := doc.ExecutiveSummary
	if summary == "" {
		summary = "No summary available"
	}

	return &market.Prediction{
		CardID:            cardID,
		Summary:           summary,
		ConfidenceScore:   decimal.NewFromFloat(0.85),
		OutcomePrediction: outcome,
		RawAnalysis:       string(rawJSON),
	}, nil
}

func fixJSONString(s string) string {
	// 0.01% -> "0.01%"
	s = barePercentRe.ReplaceAllString(s, `: "$1%"`)
	// the "Invisible Primary" phase -> the \"Invisible Primary\" phase
	s = openQuoteRe.ReplaceAllString(s, `$1 \"$2`)
	s = closeQuoteRe.ReplaceAllString(s, `$1\" $2`)
	s = closeParenRe.ReplaceAllString(s, `$1\" (`)
	s = closeCommaRe.ReplaceAllString(s, `$1\",`)
	return s
}

// parseOdds normalizes ai_calibrated_odds_pct values into percentages.
// Decimals up to 1.0 scale up ("0.565" -> 56.5); values carrying an explicit
// percent sign are already percentages ("0.01%" -> 0.01).
func parseOdds(value any) float64 {
	switch v := value.(type) {
	case float64:
		if v <= 1.0 {
			return v * 100
		}
		return v
	case string:
		clean := strings.TrimRight(strings.TrimSpace(v), "%")
		num, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return 0
		}
		if strings.Contains(v, "%") {
			return num
		}
		if num <= 1.0 {
			return num * 100
		}
		return num
	default:
		return 0
	}
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return num
	default:
		return 0
	}
}

func toFloatPtr(value any) *float64 {
	if value == nil {
		return nil
	}
	f := toFloat(value)
	return &f
}

func errorContext(s string, err error) string {
	pos := 0
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		pos = int(syntaxErr.Offset)
	}
	start := pos - 30
	if start < 0 {
		start = 0
	}
	end := pos + 30
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}
