// Package market holds the domain model for Polymarket events and the
// derived prediction cards.
package market

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultTitle is used for cards whose upstream event carries no title.
const DefaultTitle = "No Title"

// FlexString decodes JSON strings and bare numbers into their textual form.
// Gamma encodes identifiers inconsistently, sometimes "100196" and sometimes
// 100196.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	d := strings.TrimSpace(string(data))
	if d == "" || d == "null" {
		*s = ""
		return nil
	}
	if d[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	*s = FlexString(d)
	return nil
}

// EventTag is the tag shape embedded in Gamma event payloads.
type EventTag struct {
	ID    FlexString `json:"id"`
	Label string     `json:"label,omitempty"`
	Slug  string     `json:"slug,omitempty"`
}

// Market is a single outcome market inside a Gamma event. Numeric fields are
// kept raw because the API interchangeably sends numbers, quoted numbers and
// JSON-encoded strings.
type Market struct {
	ID             FlexString      `json:"id"`
	Question       string          `json:"question,omitempty"`
	GroupItemTitle string          `json:"groupItemTitle,omitempty"`
	Icon           string          `json:"icon,omitempty"`
	Outcomes       json.RawMessage `json:"outcomes,omitempty"`
	OutcomePrices  json.RawMessage `json:"outcomePrices,omitempty"`
	CurrentPrices  json.RawMessage `json:"currentPrices,omitempty"`
	LastTradePrice json.RawMessage `json:"lastTradePrice,omitempty"`
	BestBid        json.RawMessage `json:"bestBid,omitempty"`
	Volume         json.RawMessage `json:"volume,omitempty"`
	Liquidity      json.RawMessage `json:"liquidity,omitempty"`
	Probability    json.RawMessage `json:"probability,omitempty"`
	Active         *bool           `json:"active,omitempty"`
	Closed         *bool           `json:"closed,omitempty"`
	Archived       *bool           `json:"archived,omitempty"`

	// CalculatedOdds is filled in during selection, not by the API.
	CalculatedOdds float64 `json:"calculated_odds,omitempty"`
	oddsComputed   bool
}

// Odds extracts the current market odds. Precedence: lastTradePrice (used
// even when zero), then a non-zero bestBid, then the first outcome price.
// Unparseable values fall through to the next source; the default is 0.
func (m Market) Odds() float64 {
	if v, ok := parseNumber(m.LastTradePrice); ok {
		return v
	}
	if rawTruthy(m.BestBid) {
		if v, ok := parseNumber(m.BestBid); ok {
			return v
		}
	}
	if prices := parseStringList(m.OutcomePrices); len(prices) > 0 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(prices[0]), 64); err == nil {
			return v
		}
	}
	return 0
}

// CurrentProbability is the value shown to the analyzer: the selection-computed
// odds when present, otherwise the first outcome price, otherwise the market's
// own probability field.
func (m Market) CurrentProbability() float64 {
	if m.oddsComputed {
		return m.CalculatedOdds
	}
	raw := strings.TrimSpace(string(m.OutcomePrices))
	if raw == "" || raw == "null" || raw == "[]" {
		return 0
	}
	if prices := parseStringList(m.OutcomePrices); len(prices) > 0 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(prices[0]), 64); err == nil {
			return v
		}
	}
	if v, ok := parseNumber(m.Probability); ok {
		return v
	}
	return 0
}

// OutcomeNames returns the market's outcome labels, decoding the
// JSON-encoded-string form Gamma uses.
func (m Market) OutcomeNames() []string {
	return parseStringList(m.Outcomes)
}

// CurrentPriceMap decodes the currentPrices object into outcome -> price,
// tolerating quoted prices and the JSON-encoded-string form. Invalid payloads
// yield nil.
func (m Market) CurrentPriceMap() map[string]float64 {
	return parseNumberMap(m.CurrentPrices)
}

// VolumeNumber returns the market volume, false when absent or unparseable.
func (m Market) VolumeNumber() (float64, bool) {
	return parseNumber(m.Volume)
}

// LiquidityNumber returns the market liquidity, false when absent or
// unparseable.
func (m Market) LiquidityNumber() (float64, bool) {
	return parseNumber(m.Liquidity)
}

// IsActive reports the market's active flag, defaulting to true when absent.
// Display filtering uses this; analysis selection is stricter and requires an
// explicit flag.
func (m Market) IsActive() bool {
	if m.Active == nil {
		return true
	}
	return *m.Active
}

// IsArchived reports the market's archived flag, defaulting to false.
func (m Market) IsArchived() bool {
	return m.Archived != nil && *m.Archived
}

// Event is a Gamma API event. Raw preserves the upstream payload verbatim for
// snapshot storage.
type Event struct {
	ID          FlexString      `json:"id"`
	Title       string          `json:"title,omitempty"`
	Slug        string          `json:"slug,omitempty"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Volume      json.RawMessage `json:"volume,omitempty"`
	Liquidity   json.RawMessage `json:"liquidity,omitempty"`
	StartDate   string          `json:"startDate,omitempty"`
	EndDate     string          `json:"endDate,omitempty"`
	Active      *bool           `json:"active,omitempty"`
	Closed      *bool           `json:"closed,omitempty"`
	Archived    *bool           `json:"archived,omitempty"`
	Markets     []Market        `json:"markets,omitempty"`
	Tags        []EventTag      `json:"tags,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseEvent decodes a single raw Gamma event and retains the payload.
func ParseEvent(raw json.RawMessage) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	ev.Raw = raw
	return &ev, nil
}

// PolymarketID returns the event identifier in string form.
func (e *Event) PolymarketID() string {
	return string(e.ID)
}

// CardTitle returns the event title, defaulting when absent.
func (e *Event) CardTitle() string {
	if e.Title == "" {
		return DefaultTitle
	}
	return e.Title
}

// CardSlug returns the event slug, falling back to the polymarket id.
func (e *Event) CardSlug() string {
	if e.Slug == "" {
		return e.PolymarketID()
	}
	return e.Slug
}

// ImageURL prefers the event image over its icon.
func (e *Event) ImageURL() string {
	if e.Image != "" {
		return e.Image
	}
	return e.Icon
}

// VolumeValue returns the event volume as a number, zero when missing or
// unparseable.
func (e *Event) VolumeValue() float64 {
	if v, ok := parseNumber(e.Volume); ok {
		return v
	}
	return 0
}

// VolumeNumber returns the event-level volume for display. Unlike
// VolumeValue it distinguishes "no usable value" from zero: a numeric zero in
// the payload reports false, a quoted "0" reports 0.
func (e *Event) VolumeNumber() (float64, bool) {
	if !rawTruthy(e.Volume) {
		return 0, false
	}
	return parseNumber(e.Volume)
}

// LiquidityNumber returns the event-level liquidity for display, false when
// the payload carries no usable value.
func (e *Event) LiquidityNumber() (float64, bool) {
	if !rawTruthy(e.Liquidity) {
		return 0, false
	}
	return parseNumber(e.Liquidity)
}

// EndDateTime parses the upstream ISO end date, nil when absent or malformed.
func (e *Event) EndDateTime() *time.Time {
	if e.EndDate == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, e.EndDate)
	if err != nil {
		return nil
	}
	return &t
}

// IsActive reports the upstream active flag, defaulting to true when absent.
func (e *Event) IsActive() bool {
	if e.Active == nil {
		return true
	}
	return *e.Active
}

// IsClosed reports the upstream closed flag, defaulting to false when absent.
func (e *Event) IsClosed() bool {
	return e.Closed != nil && *e.Closed
}
