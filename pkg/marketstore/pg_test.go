package marketstore

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
	"github.com/predictionlabs/prediction-oracle/pkg/pgutil"
	mghelper "github.com/predictionlabs/prediction-oracle/pkg/pgutil/migrations"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	err := mghelper.CreateSchema(ctx, db,
		&EventCardDao{},
		&EventSnapshotDao{},
		&TagDao{},
		&CardTagDao{},
		&AIPredictionDao{},
	)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return ctx, NewStore(db)
}

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if sock == "" {
			continue
		}
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed marketstore tests")
}

func newTestCard(polymarketID, title string, volume float64) *market.Card {
	return &market.Card{
		PolymarketID: polymarketID,
		Title:        title,
		Slug:         polymarketID + "-slug",
		Volume:       decimal.NewFromFloat(volume),
		IsActive:     true,
	}
}

func newTestSnapshot(polymarketID string, createdAt time.Time, payload string) *market.Snapshot {
	return &market.Snapshot{
		PolymarketID: polymarketID,
		RawData:      json.RawMessage(payload),
		CreatedAt:    createdAt,
	}
}

func TestCardPGStore_UpsertCards(t *testing.T) {
	ctx, s := setupStore(t)

	first := newTestCard("9001", "Will it rain tomorrow?", 1500)
	first.Description = "Resolves yes on measurable rainfall."
	second := newTestCard("9002", "Premier League winner", 98000.50)

	ids, err := s.UpsertCards(ctx, []*market.Card{first, second})
	if err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if ids["9001"] == 0 || ids["9002"] == 0 {
		t.Fatalf("expected non-zero card ids, got %v", ids)
	}

	// Refresh the first card: title, volume and status follow the upsert,
	// slug and description keep their first-crawl values.
	refresh := newTestCard("9001", "Will it rain on Saturday?", 2750.25)
	refresh.Slug = "brand-new-slug"
	refresh.IsActive = false

	again, err := s.UpsertCards(ctx, []*market.Card{refresh})
	if err != nil {
		t.Fatalf("UpsertCards() refresh failed: %v", err)
	}
	if again["9001"] != ids["9001"] {
		t.Fatalf("card id changed across upserts: got %d want %d", again["9001"], ids["9001"])
	}

	got, err := s.GetCard(ctx, "9001")
	if err != nil {
		t.Fatalf("GetCard() failed: %v", err)
	}
	if got.Title != "Will it rain on Saturday?" {
		t.Fatalf("title not updated: got %q", got.Title)
	}
	if !got.Volume.Equal(decimal.NewFromFloat(2750.25)) {
		t.Fatalf("volume not updated: got %s", got.Volume)
	}
	if got.IsActive {
		t.Fatalf("expected card to be inactive after refresh")
	}
	if got.Slug != "9001-slug" {
		t.Fatalf("slug must keep its first-crawl value, got %q", got.Slug)
	}
	if got.Description != "Resolves yes on measurable rainfall." {
		t.Fatalf("description must keep its first-crawl value, got %q", got.Description)
	}
}

func TestCardPGStore_UpsertCardsDuplicateIDs(t *testing.T) {
	ctx, s := setupStore(t)

	stale := newTestCard("9100", "Stale title", 10)
	fresh := newTestCard("9100", "Fresh title", 20)

	ids, err := s.UpsertCards(ctx, []*market.Card{stale, fresh})
	if err != nil {
		t.Fatalf("UpsertCards() with duplicate ids failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id for collapsed duplicates, got %d", len(ids))
	}

	got, err := s.GetCard(ctx, "9100")
	if err != nil {
		t.Fatalf("GetCard() failed: %v", err)
	}
	if got.Title != "Fresh title" {
		t.Fatalf("expected last duplicate to win, got %q", got.Title)
	}
}

func TestCardPGStore_GetCard(t *testing.T) {
	ctx, s := setupStore(t)

	endDate := time.Date(2026, 11, 3, 12, 0, 0, 0, time.UTC)
	card := newTestCard("9200", "US midterm turnout above 50%?", 430000)
	card.Description = "Turnout per official count."
	card.ImageURL = "https://example.com/turnout.png"
	card.EndDate = &endDate

	if _, err := s.UpsertCards(ctx, []*market.Card{card}); err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}

	got, err := s.GetCard(ctx, "9200")
	if err != nil {
		t.Fatalf("GetCard() failed: %v", err)
	}
	if got.ID == 0 {
		t.Fatalf("expected database id to be set")
	}
	if got.Description != card.Description {
		t.Fatalf("description mismatch: got %q want %q", got.Description, card.Description)
	}
	if got.ImageURL != card.ImageURL {
		t.Fatalf("image url mismatch: got %q want %q", got.ImageURL, card.ImageURL)
	}
	if got.EndDate == nil || !got.EndDate.Equal(endDate) {
		t.Fatalf("end date mismatch: got %v want %v", got.EndDate, endDate)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("expected database timestamps to be populated")
	}

	_, err = s.GetCard(ctx, "no-such-id")
	if !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestCardPGStore_ListAndCountCards(t *testing.T) {
	ctx, s := setupStore(t)

	low := newTestCard("9301", "Low volume", 100)
	mid := newTestCard("9302", "Mid volume", 5000)
	high := newTestCard("9303", "High volume", 250000)
	inactive := newTestCard("9304", "Inactive", 999999)
	inactive.IsActive = false

	if _, err := s.UpsertCards(ctx, []*market.Card{low, mid, high, inactive}); err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}

	count, err := s.CountCards(ctx, WithActiveOnly())
	if err != nil {
		t.Fatalf("CountCards() failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 active cards, got %d", count)
	}

	total, err := s.CountCards(ctx)
	if err != nil {
		t.Fatalf("CountCards() without filters failed: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 cards in total, got %d", total)
	}

	page1, err := s.ListCards(ctx, WithActiveOnly(), WithVolumeSort(true), WithPage(1, 2))
	if err != nil {
		t.Fatalf("ListCards() page 1 failed: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 cards on page 1, got %d", len(page1))
	}
	if page1[0].PolymarketID != "9303" || page1[1].PolymarketID != "9302" {
		t.Fatalf("unexpected page 1 order: %s, %s", page1[0].PolymarketID, page1[1].PolymarketID)
	}

	page2, err := s.ListCards(ctx, WithActiveOnly(), WithVolumeSort(true), WithPage(2, 2))
	if err != nil {
		t.Fatalf("ListCards() page 2 failed: %v", err)
	}
	if len(page2) != 1 || page2[0].PolymarketID != "9301" {
		t.Fatalf("unexpected page 2 contents: %v", page2)
	}

	ascending, err := s.ListCards(ctx, WithActiveOnly(), WithVolumeSort(false))
	if err != nil {
		t.Fatalf("ListCards() ascending failed: %v", err)
	}
	if len(ascending) != 3 || ascending[0].PolymarketID != "9301" {
		t.Fatalf("expected ascending order starting with 9301, got %v", ascending)
	}

	limited, err := s.ListCards(ctx, WithActiveOnly(), WithVolumeSort(true), WithLimit(1))
	if err != nil {
		t.Fatalf("ListCards() limited failed: %v", err)
	}
	if len(limited) != 1 || limited[0].PolymarketID != "9303" {
		t.Fatalf("expected the single highest-volume card, got %v", limited)
	}
}

func TestCardPGStore_TagsAndFiltering(t *testing.T) {
	ctx, s := setupStore(t)

	cardIDs, err := s.UpsertCards(ctx, []*market.Card{
		newTestCard("9401", "Election night", 1000),
		newTestCard("9402", "Championship game", 2000),
	})
	if err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}

	tagIDs, err := s.UpsertTags(ctx, []*market.Tag{
		{PolymarketID: "100", Name: "politics"},
		{PolymarketID: "200", Name: "sports"},
	})
	if err != nil {
		t.Fatalf("UpsertTags() failed: %v", err)
	}
	if len(tagIDs) != 2 {
		t.Fatalf("expected 2 tag ids, got %d", len(tagIDs))
	}

	// Renaming keeps the database id stable.
	renamed, err := s.UpsertTags(ctx, []*market.Tag{{PolymarketID: "100", Name: "us-politics"}})
	if err != nil {
		t.Fatalf("UpsertTags() rename failed: %v", err)
	}
	if renamed["100"] != tagIDs["100"] {
		t.Fatalf("tag id changed across upserts: got %d want %d", renamed["100"], tagIDs["100"])
	}

	links := []CardTagLink{
		{CardID: cardIDs["9401"], TagID: tagIDs["100"]},
		{CardID: cardIDs["9401"], TagID: tagIDs["200"]},
		{CardID: cardIDs["9402"], TagID: tagIDs["100"]},
	}
	if err := s.LinkCardTags(ctx, links); err != nil {
		t.Fatalf("LinkCardTags() failed: %v", err)
	}
	if err := s.LinkCardTags(ctx, links); err != nil {
		t.Fatalf("LinkCardTags() must ignore existing links, got: %v", err)
	}

	politics, err := s.ListCards(ctx, WithActiveOnly(), WithTagID("100"), WithVolumeSort(true))
	if err != nil {
		t.Fatalf("ListCards() by tag failed: %v", err)
	}
	if len(politics) != 2 {
		t.Fatalf("expected 2 politics cards, got %d", len(politics))
	}

	sports, err := s.ListCards(ctx, WithActiveOnly(), WithTagID("200"))
	if err != nil {
		t.Fatalf("ListCards() by tag failed: %v", err)
	}
	if len(sports) != 1 || sports[0].PolymarketID != "9401" {
		t.Fatalf("expected only card 9401 for sports, got %v", sports)
	}

	count, err := s.CountCards(ctx, WithActiveOnly(), WithTagID("100"))
	if err != nil {
		t.Fatalf("CountCards() by tag failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected distinct count of 2, got %d", count)
	}

	none, err := s.ListCards(ctx, WithTagID("999"))
	if err != nil {
		t.Fatalf("ListCards() unknown tag failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no cards for unknown tag, got %d", len(none))
	}
}

func TestCardPGStore_Snapshots(t *testing.T) {
	ctx, s := setupStore(t)

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	snapshots := []*market.Snapshot{
		newTestSnapshot("9501", base, `{"id": "9501", "title": "old"}`),
		newTestSnapshot("9501", base.Add(2*time.Hour), `{"id": "9501", "title": "new"}`),
		newTestSnapshot("9502", base.Add(time.Hour), `{"id": "9502", "title": "other"}`),
	}
	if err := s.InsertSnapshots(ctx, snapshots); err != nil {
		t.Fatalf("InsertSnapshots() failed: %v", err)
	}

	latest, err := s.LatestSnapshots(ctx, []string{"9501", "9502", "9999"})
	if err != nil {
		t.Fatalf("LatestSnapshots() failed: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected snapshots for 2 ids, got %d", len(latest))
	}
	if _, ok := latest["9999"]; ok {
		t.Fatalf("expected no snapshot for unknown id")
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(latest["9501"].RawData, &payload); err != nil {
		t.Fatalf("failed to decode snapshot payload: %v", err)
	}
	if payload.Title != "new" {
		t.Fatalf("expected the newest snapshot, got title %q", payload.Title)
	}
	if !latest["9501"].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("unexpected snapshot timestamp: %v", latest["9501"].CreatedAt)
	}
}

func TestCardPGStore_Predictions(t *testing.T) {
	ctx, s := setupStore(t)

	cardIDs, err := s.UpsertCards(ctx, []*market.Card{
		newTestCard("9601", "Rate cut in September?", 50000),
		newTestCard("9602", "Shutdown before October?", 30000),
	})
	if err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}

	base := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	first := &market.Prediction{
		CardID:            cardIDs["9601"],
		Summary:           "Market overprices the cut.",
		ConfidenceScore:   decimal.NewFromFloat(72.5),
		OutcomePrediction: "41.0",
		RawAnalysis:       `{"501": {"question": "Rate cut?"}}`,
		CreatedAt:         base,
	}
	if err := s.ReplacePredictions(ctx, []*market.Prediction{first}); err != nil {
		t.Fatalf("ReplacePredictions() failed: %v", err)
	}

	predictions, err := s.ListPredictions(ctx, []int64{cardIDs["9601"]})
	if err != nil {
		t.Fatalf("ListPredictions() failed: %v", err)
	}
	if len(predictions[cardIDs["9601"]]) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(predictions[cardIDs["9601"]]))
	}
	got := predictions[cardIDs["9601"]][0]
	if got.Summary != first.Summary {
		t.Fatalf("summary mismatch: got %q", got.Summary)
	}
	if !got.ConfidenceScore.Equal(first.ConfidenceScore) {
		t.Fatalf("confidence mismatch: got %s", got.ConfidenceScore)
	}
	if got.RawAnalysis != first.RawAnalysis {
		t.Fatalf("raw analysis mismatch: got %q", got.RawAnalysis)
	}

	// Replacing drops the old generation for the affected card only.
	replacement := []*market.Prediction{
		{
			CardID:            cardIDs["9601"],
			Summary:           "Cut is fully priced in.",
			ConfidenceScore:   decimal.NewFromFloat(60),
			OutcomePrediction: "55.0",
			CreatedAt:         base.Add(time.Hour),
		},
		{
			CardID:            cardIDs["9602"],
			Summary:           "Shutdown odds are noise.",
			ConfidenceScore:   decimal.NewFromFloat(80),
			OutcomePrediction: "12.0",
			CreatedAt:         base.Add(time.Hour),
		},
	}
	if err := s.ReplacePredictions(ctx, replacement); err != nil {
		t.Fatalf("ReplacePredictions() second generation failed: %v", err)
	}

	predictions, err = s.ListPredictions(ctx, []int64{cardIDs["9601"], cardIDs["9602"]})
	if err != nil {
		t.Fatalf("ListPredictions() failed: %v", err)
	}
	if len(predictions[cardIDs["9601"]]) != 1 {
		t.Fatalf("expected old prediction to be replaced, got %d rows", len(predictions[cardIDs["9601"]]))
	}
	if predictions[cardIDs["9601"]][0].Summary != "Cut is fully priced in." {
		t.Fatalf("unexpected prediction after replace: %q", predictions[cardIDs["9601"]][0].Summary)
	}
	if len(predictions[cardIDs["9602"]]) != 1 {
		t.Fatalf("expected 1 prediction for the second card, got %d", len(predictions[cardIDs["9602"]]))
	}
	if predictions[cardIDs["9602"]][0].RawAnalysis != "" {
		t.Fatalf("expected empty raw analysis to round-trip, got %q", predictions[cardIDs["9602"]][0].RawAnalysis)
	}
}

func TestCardPGStore_ListPredictionsNewestFirst(t *testing.T) {
	ctx, s := setupStore(t)

	cardIDs, err := s.UpsertCards(ctx, []*market.Card{newTestCard("9700", "History test", 100)})
	if err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}
	cardID := cardIDs["9700"]

	base := time.Date(2026, 8, 22, 8, 0, 0, 0, time.UTC)
	generations := []*market.Prediction{
		{CardID: cardID, Summary: "oldest", ConfidenceScore: decimal.NewFromInt(10), OutcomePrediction: "1.0", CreatedAt: base},
		{CardID: cardID, Summary: "middle", ConfidenceScore: decimal.NewFromInt(20), OutcomePrediction: "2.0", CreatedAt: base.Add(time.Hour)},
		{CardID: cardID, Summary: "newest", ConfidenceScore: decimal.NewFromInt(30), OutcomePrediction: "3.0", CreatedAt: base.Add(2 * time.Hour)},
	}
	if err := s.ReplacePredictions(ctx, generations); err != nil {
		t.Fatalf("ReplacePredictions() failed: %v", err)
	}

	predictions, err := s.ListPredictions(ctx, []int64{cardID})
	if err != nil {
		t.Fatalf("ListPredictions() failed: %v", err)
	}
	rows := predictions[cardID]
	if len(rows) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(rows))
	}
	if rows[0].Summary != "newest" || rows[2].Summary != "oldest" {
		t.Fatalf("expected newest-first order, got %q .. %q", rows[0].Summary, rows[2].Summary)
	}
}

func TestCardPGStore_SetCardActive(t *testing.T) {
	ctx, s := setupStore(t)

	if _, err := s.UpsertCards(ctx, []*market.Card{newTestCard("9800", "Status sync", 100)}); err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}

	if err := s.SetCardActive(ctx, "9800", false); err != nil {
		t.Fatalf("SetCardActive() failed: %v", err)
	}

	got, err := s.GetCard(ctx, "9800")
	if err != nil {
		t.Fatalf("GetCard() failed: %v", err)
	}
	if got.IsActive {
		t.Fatalf("expected card to be inactive")
	}

	err = s.SetCardActive(ctx, "no-such-id", true)
	if !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestCardPGStore_DeleteCards(t *testing.T) {
	ctx, s := setupStore(t)

	cardIDs, err := s.UpsertCards(ctx, []*market.Card{
		newTestCard("9901", "Doomed card", 100),
		newTestCard("9902", "Surviving card", 200),
	})
	if err != nil {
		t.Fatalf("UpsertCards() failed: %v", err)
	}

	tagIDs, err := s.UpsertTags(ctx, []*market.Tag{{PolymarketID: "300", Name: "crypto"}})
	if err != nil {
		t.Fatalf("UpsertTags() failed: %v", err)
	}
	err = s.LinkCardTags(ctx, []CardTagLink{
		{CardID: cardIDs["9901"], TagID: tagIDs["300"]},
		{CardID: cardIDs["9902"], TagID: tagIDs["300"]},
	})
	if err != nil {
		t.Fatalf("LinkCardTags() failed: %v", err)
	}

	doomed := &market.Prediction{
		CardID:            cardIDs["9901"],
		Summary:           "gone soon",
		ConfidenceScore:   decimal.NewFromInt(50),
		OutcomePrediction: "9.0",
	}
	if err := s.ReplacePredictions(ctx, []*market.Prediction{doomed}); err != nil {
		t.Fatalf("ReplacePredictions() failed: %v", err)
	}

	if err := s.DeleteCards(ctx, []int64{cardIDs["9901"]}); err != nil {
		t.Fatalf("DeleteCards() failed: %v", err)
	}

	if _, err := s.GetCard(ctx, "9901"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected deleted card to be gone, got %v", err)
	}
	if _, err := s.GetCard(ctx, "9902"); err != nil {
		t.Fatalf("expected untouched card to survive, got %v", err)
	}

	predictions, err := s.ListPredictions(ctx, []int64{cardIDs["9901"]})
	if err != nil {
		t.Fatalf("ListPredictions() failed: %v", err)
	}
	if len(predictions[cardIDs["9901"]]) != 0 {
		t.Fatalf("expected predictions of the deleted card to be gone")
	}

	tagged, err := s.ListCards(ctx, WithTagID("300"))
	if err != nil {
		t.Fatalf("ListCards() by tag failed: %v", err)
	}
	if len(tagged) != 1 || tagged[0].PolymarketID != "9902" {
		t.Fatalf("expected only the surviving card to stay linked, got %v", tagged)
	}

	if err := s.DeleteCards(ctx, nil); err != nil {
		t.Fatalf("DeleteCards() with no ids must be a no-op, got: %v", err)
	}
}
