package market

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func TestFlexString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "quoted id", input: `{"id":"100196"}`, want: "100196"},
		{name: "numeric id", input: `{"id":100196}`, want: "100196"},
		{name: "null id", input: `{"id":null}`, want: ""},
		{name: "missing id", input: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				ID FlexString `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.input), &payload))
			require.Equal(t, tt.want, string(payload.ID))
		})
	}
}

func TestMarket_Odds(t *testing.T) {
	tests := []struct {
		name   string
		market Market
		want   float64
	}{
		{
			name:   "last trade price wins",
			market: Market{LastTradePrice: raw(`0.65`), BestBid: raw(`0.4`), OutcomePrices: raw(`["0.25","0.75"]`)},
			want:   0.65,
		},
		{
			name:   "last trade price as quoted number",
			market: Market{LastTradePrice: raw(`"0.72"`)},
			want:   0.72,
		},
		{
			name:   "last trade price used even when zero",
			market: Market{LastTradePrice: raw(`0`), BestBid: raw(`0.4`)},
			want:   0,
		},
		{
			name:   "null last trade price falls to best bid",
			market: Market{LastTradePrice: raw(`null`), BestBid: raw(`0.4`)},
			want:   0.4,
		},
		{
			name:   "unparseable last trade price falls to best bid",
			market: Market{LastTradePrice: raw(`"n/a"`), BestBid: raw(`0.2`)},
			want:   0.2,
		},
		{
			name:   "zero best bid falls to outcome prices",
			market: Market{BestBid: raw(`0`), OutcomePrices: raw(`["0.25","0.75"]`)},
			want:   0.25,
		},
		{
			name:   "empty best bid falls to outcome prices",
			market: Market{BestBid: raw(`""`), OutcomePrices: raw(`["0.3","0.7"]`)},
			want:   0.3,
		},
		{
			name:   "outcome prices as encoded string",
			market: Market{OutcomePrices: raw(`"[\"0.3\", \"0.7\"]"`)},
			want:   0.3,
		},
		{
			name:   "outcome prices as numeric array",
			market: Market{OutcomePrices: raw(`[0.15, 0.85]`)},
			want:   0.15,
		},
		{
			name:   "nothing usable defaults to zero",
			market: Market{OutcomePrices: raw(`[]`)},
			want:   0,
		},
		{
			name:   "empty market",
			market: Market{},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, tt.market.Odds(), 1e-9)
		})
	}
}

func TestMarket_CurrentProbability(t *testing.T) {
	t.Run("computed odds take priority", func(t *testing.T) {
		m := Market{OutcomePrices: raw(`["0.9","0.1"]`), CalculatedOdds: 0.42, oddsComputed: true}
		require.InDelta(t, 0.42, m.CurrentProbability(), 1e-9)
	})

	t.Run("first outcome price", func(t *testing.T) {
		m := Market{OutcomePrices: raw(`["0.9","0.1"]`)}
		require.InDelta(t, 0.9, m.CurrentProbability(), 1e-9)
	})

	t.Run("probability field on unparseable price", func(t *testing.T) {
		m := Market{OutcomePrices: raw(`["yes","no"]`), Probability: raw(`0.33`)}
		require.InDelta(t, 0.33, m.CurrentProbability(), 1e-9)
	})

	t.Run("empty price list skips probability field", func(t *testing.T) {
		m := Market{OutcomePrices: raw(`[]`), Probability: raw(`0.33`)}
		require.InDelta(t, 0, m.CurrentProbability(), 1e-9)
	})

	t.Run("no data", func(t *testing.T) {
		require.InDelta(t, 0, Market{}.CurrentProbability(), 1e-9)
	})
}

func TestMarket_DisplayAccessors(t *testing.T) {
	t.Run("outcome names", func(t *testing.T) {
		m := Market{Outcomes: raw(`"[\"Yes\", \"No\"]"`)}
		require.Equal(t, []string{"Yes", "No"}, m.OutcomeNames())

		m = Market{Outcomes: raw(`["Up","Down"]`)}
		require.Equal(t, []string{"Up", "Down"}, m.OutcomeNames())

		require.Nil(t, Market{}.OutcomeNames())
		require.Nil(t, Market{Outcomes: raw(`"not a list"`)}.OutcomeNames())
	})

	t.Run("current prices", func(t *testing.T) {
		m := Market{CurrentPrices: raw(`{"Yes":0.65,"No":"0.35"}`)}
		require.Equal(t, map[string]float64{"Yes": 0.65, "No": 0.35}, m.CurrentPriceMap())

		m = Market{CurrentPrices: raw(`"{\"Yes\": 0.4}"`)}
		require.Equal(t, map[string]float64{"Yes": 0.4}, m.CurrentPriceMap())

		require.Nil(t, Market{}.CurrentPriceMap())
		require.Nil(t, Market{CurrentPrices: raw(`[0.1]`)}.CurrentPriceMap())
	})

	t.Run("volume and liquidity", func(t *testing.T) {
		m := Market{Volume: raw(`"1200.5"`), Liquidity: raw(`88.25`)}
		v, ok := m.VolumeNumber()
		require.True(t, ok)
		require.InDelta(t, 1200.5, v, 1e-9)
		l, ok := m.LiquidityNumber()
		require.True(t, ok)
		require.InDelta(t, 88.25, l, 1e-9)

		_, ok = Market{}.VolumeNumber()
		require.False(t, ok)
		_, ok = Market{Liquidity: raw(`null`)}.LiquidityNumber()
		require.False(t, ok)
	})

	t.Run("flags", func(t *testing.T) {
		yes, no := true, false
		require.True(t, Market{}.IsActive())
		require.True(t, Market{Active: &yes}.IsActive())
		require.False(t, Market{Active: &no}.IsActive())
		require.False(t, Market{}.IsArchived())
		require.True(t, Market{Archived: &yes}.IsArchived())
	})
}

func TestEvent_DisplayNumbers(t *testing.T) {
	tests := []struct {
		name   string
		volume string
		want   float64
		ok     bool
	}{
		{name: "numeric volume", volume: `125000.75`, want: 125000.75, ok: true},
		{name: "quoted volume", volume: `"98765.4"`, want: 98765.4, ok: true},
		// A quoted zero is a usable value, a numeric zero is not. The
		// distinction decides whether the API reports 0 or null.
		{name: "quoted zero", volume: `"0"`, want: 0, ok: true},
		{name: "numeric zero", volume: `0`, ok: false},
		{name: "null", volume: `null`, ok: false},
		{name: "absent", volume: ``, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &Event{Volume: raw(tt.volume), Liquidity: raw(tt.volume)}

			v, ok := ev.VolumeNumber()
			require.Equal(t, tt.ok, ok)
			l, lok := ev.LiquidityNumber()
			require.Equal(t, tt.ok, lok)
			if tt.ok {
				require.InDelta(t, tt.want, v, 1e-9)
				require.InDelta(t, tt.want, l, 1e-9)
			}
		})
	}

	closed := true
	require.False(t, (&Event{}).IsClosed())
	require.True(t, (&Event{Closed: &closed}).IsClosed())
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":12345,"title":"Will it rain?","slug":"will-it-rain","markets":[{"id":"m1","lastTradePrice":0.6}]}`)

	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	require.Equal(t, "12345", ev.PolymarketID())
	require.Equal(t, "Will it rain?", ev.Title)
	require.Len(t, ev.Markets, 1)
	require.JSONEq(t, string(payload), string(ev.Raw))

	_, err = ParseEvent([]byte(`{"id": [not json`))
	require.Error(t, err)
}

func TestEvent_CardDefaults(t *testing.T) {
	active := false

	ev := &Event{ID: "777"}
	require.Equal(t, "No Title", ev.CardTitle())
	require.Equal(t, "777", ev.CardSlug())
	require.Equal(t, "", ev.ImageURL())
	require.True(t, ev.IsActive())
	require.Zero(t, ev.VolumeValue())
	require.Nil(t, ev.EndDateTime())

	ev = &Event{
		ID:     "888",
		Title:  "Election winner",
		Slug:   "election-winner",
		Icon:   "https://img.example/icon.png",
		Volume: raw(`"1250000.5"`),
		Active: &active,
	}
	require.Equal(t, "Election winner", ev.CardTitle())
	require.Equal(t, "election-winner", ev.CardSlug())
	require.Equal(t, "https://img.example/icon.png", ev.ImageURL())
	require.False(t, ev.IsActive())
	require.InDelta(t, 1250000.5, ev.VolumeValue(), 1e-9)

	// Image wins over icon when both are set
	ev.Image = "https://img.example/full.png"
	require.Equal(t, "https://img.example/full.png", ev.ImageURL())
}

func TestEvent_EndDateTime(t *testing.T) {
	ev := &Event{EndDate: "2026-12-31T12:00:00Z"}
	got := ev.EndDateTime()
	require.NotNil(t, got)
	require.Equal(t, time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC), got.UTC())

	ev = &Event{EndDate: "2026-12-31T12:00:00+02:00"}
	require.NotNil(t, ev.EndDateTime())

	ev = &Event{EndDate: "not-a-date"}
	require.Nil(t, ev.EndDateTime())
}

func TestNewCardFromEvent(t *testing.T) {
	active := true
	ev := &Event{
		ID:          "42",
		Title:       "Super Bowl champion",
		Slug:        "super-bowl-champion",
		Description: "Which team wins",
		Image:       "https://img.example/sb.png",
		Volume:      raw(`987654.32`),
		EndDate:     "2027-02-07T23:00:00Z",
		Active:      &active,
	}

	card := NewCardFromEvent(ev)
	require.Equal(t, "42", card.PolymarketID)
	require.Equal(t, "Super Bowl champion", card.Title)
	require.Equal(t, "super-bowl-champion", card.Slug)
	require.Equal(t, "https://img.example/sb.png", card.ImageURL)
	require.Equal(t, "987654.32", card.Volume.String())
	require.NotNil(t, card.EndDate)
	require.True(t, card.IsActive)
}

func TestNewSnapshot(t *testing.T) {
	payload := []byte(`{"id":"42","title":"x"}`)
	ev, err := ParseEvent(payload)
	require.NoError(t, err)

	snap := NewSnapshot(ev)
	require.Equal(t, "42", snap.PolymarketID)
	require.JSONEq(t, string(payload), string(snap.RawData))
}
