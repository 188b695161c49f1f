package analyzer

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Result is the strict-JSON document the model is instructed to return.
type Result struct {
	ExecutiveSummary string                  `json:"executive_summary"`
	Markets          map[string]MarketResult `json:"markets"`
}

// MarketResult is the audit verdict for a single market.
type MarketResult struct {
	AICalibratedOdds float64        `json:"ai_calibrated_odds"`
	ConfidenceScore  float64        `json:"confidence_score"`
	Analysis         MarketAnalysis `json:"analysis"`
}

// MarketAnalysis is the forensic breakdown the prompt demands per market.
type MarketAnalysis struct {
	StructuralAnchor string `json:"structural_anchor"`
	Noise            string `json:"noise"`
	Barrier          string `json:"barrier"`
	Blindspot        string `json:"blindspot"`
}

// RawMarketAnalysis is the per-market entry persisted in raw_analysis.
// Question and OriginalOdds stay null until backfilled from the source event.
type RawMarketAnalysis struct {
	Question            *string  `json:"question"`
	OriginalOdds        *float64 `json:"original_odds"`
	AICalibratedOddsPct float64  `json:"ai_calibrated_odds_pct"`
	AIConfidence        float64  `json:"ai_confidence"`
	StructuralAnchor    string   `json:"structural_anchor"`
	Noise               string   `json:"noise"`
	Barrier             string   `json:"barrier"`
	Blindspot           string   `json:"blindspot"`
}

// Summary returns the executive summary, with a placeholder when the model
// produced none.
func (r *Result) Summary() string {
	if r.ExecutiveSummary == "" {
		return "No summary available"
	}
	return r.ExecutiveSummary
}

// PrimaryPrediction returns the calibrated odds of the market the model is
// most confident about, formatted as a percentage string, along with that
// confidence. Ties keep the lowest market id; without any market above zero
// confidence the prediction is "0".
func (r *Result) PrimaryPrediction() (string, float64) {
	ids := make([]string, 0, len(r.Markets))
	for id := range r.Markets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	prediction := "0"
	confidence := 0.0
	for _, id := range ids {
		m := r.Markets[id]
		if m.ConfidenceScore > confidence {
			confidence = m.ConfidenceScore
			prediction = fmt.Sprintf("%.1f", m.AICalibratedOdds*100)
		}
	}
	return prediction, confidence
}

// RawAnalysis converts the result into the persisted raw_analysis shape,
// keyed by market id.
func (r *Result) RawAnalysis() map[string]*RawMarketAnalysis {
	raw := make(map[string]*RawMarketAnalysis, len(r.Markets))
	for id, m := range r.Markets {
		raw[id] = &RawMarketAnalysis{
			AICalibratedOddsPct: m.AICalibratedOdds * 100,
			AIConfidence:        m.ConfidenceScore,
			StructuralAnchor:    m.Analysis.StructuralAnchor,
			Noise:               m.Analysis.Noise,
			Barrier:             m.Analysis.Barrier,
			Blindspot:           m.Analysis.Blindspot,
		}
	}
	return raw
}

// StoredConfidence converts the model's 0-10 confidence to the 0-100 scale
// persisted on predictions, capped just below the column maximum.
func StoredConfidence(confidence float64) decimal.Decimal {
	outOfHundred := confidence * 10
	if outOfHundred > 99.9 {
		outOfHundred = 99.9
	}
	return decimal.NewFromFloat(outOfHundred)
}
