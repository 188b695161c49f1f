package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
)

const promptTask = `Task: AUDIT the current prediction market odds.
**CRITICAL RULE**: The market is "Efficient" by default. The Current Probability is your STARTING ANCHOR.
Do NOT invent a probability from scratch. You only adjust the market price up or down based on "Alpha" (new information the market hasn't priced in).
`

const promptFramework = `Analysis Framework (The "Delta" Method):
1. **Start with Market Odds**.
2. **Search for Contradictions**: Is there breaking news, injury reports, or legal filings that the market ignores?
3. **Apply Adjustment**:
   - No new info? -> Keep AI Odds close to Market Odds (e.g., Market 65% -> AI 63-67%).
   - Minor friction? -> Small adjustment (e.g., -5%).
   - "Smoking Gun" (Fatal flaw)? -> Large adjustment (e.g., -20%).

**Sanity Check**:
- If Market Odds > 60% and you predict < 10%, YOU ARE LIKELY WRONG unless the team has been disqualified or the event cancelled.
- Do not be overly conservative just because the event is far in the future.

Analysis Requirements (The "Auditor" Standard):
1. **Executive Summary**: One ruthless sentence (max 20 words) citing the biggest macro-factor (e.g., "Fed Rate Cut", "QB Injury", "SEC Deadline").

2. **For EACH Market**, provide a forensic breakdown:

   - **Structural Anchor (The Baseline)**:
     * State the base assumption supporting the current price.
     * Example: "Market prices in dominant 12-win season performance."

   - **The Noise (Overreaction)**:
     * What SPECIFIC headline/hype is inflating the price?
     * ⛔ BAD: "Sentiment is mixed."
     * ✅ GOOD: "Viral rumors about a settlement on Twitter are ignoring the judge's latest scheduling order."

   - **The Barrier (The Risk)**:
     * Specific hurdle (Injury, Law, Math).
     * ✅ GOOD: "Cap space is -$15M, preventing key signings."

   - **The Blindspot (The Edge)**:
     * What specific data is the crowd missing?

   - **Calibrated Probability**:
     * YOUR FINAL ADJUSTED ODDS (0.0 - 1.0).
     * **Must be relative to the original odds.**

   - **Confidence**: 0-10 (How confident are you in your *deviation* from the market?).

OUTPUT FORMAT (Strict JSON):
{
    "executive_summary": "string",
    "markets": {
        "MARKET_ID_HERE": {
            "ai_calibrated_odds": 0.65,
            "confidence_score": 8.5,
            "analysis": {
                "structural_anchor": "string",
                "noise": "string",
                "barrier": "string",
                "blindspot": "string"
            }
        }
    }
}`

// BuildPrompt renders the audit prompt for a selected event. The model is
// framed as a risk manager adjusting the current market price, not an oracle
// inventing probabilities from scratch.
func BuildPrompt(selection *market.Selection, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Role: You are a Senior Risk Manager at a Hedge Fund.\nCurrent Time: %s UTC\n\n", now.UTC().Format("2006-01-02 15:04"))
	b.WriteString(promptTask)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Input Event:\nTitle: %s\nDescription: %s\nMarkets:\n", selection.Title, selection.Description)
	for _, m := range selection.Markets {
		p := m.CurrentProbability()
		fmt.Fprintf(&b, "- Market ID: %s\n- Question: %s\n- Current Probability: %.2f (%.1f%%)\n", m.ID, m.Question, p, p*100)
	}
	b.WriteByte('\n')
	b.WriteString(promptFramework)

	return b.String()
}
