package crawler

import (
	"context"
	"fmt"

	"github.com/predictionlabs/prediction-oracle/pkg/market"
	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
)

// StatusUpdate records a card whose stored active flag drifted from upstream.
type StatusUpdate struct {
	Card   *market.Card
	Active bool
}

// Deletion names a card to remove and why.
type Deletion struct {
	Card   *market.Card
	Reason string
}

// SyncPlan is the outcome of comparing stored cards against live upstream
// state. A card can appear in both Updates and Deletions: its status is
// corrected first, then the row is removed.
type SyncPlan struct {
	Updates   []StatusUpdate
	Deletions []Deletion
	NotFound  []*market.Card
}

// Empty reports whether the plan changes anything. Cards missing upstream are
// reported but never touched.
func (p *SyncPlan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Deletions) == 0
}

// BuildSyncPlan compares stored cards with their live statuses. Cards absent
// from the status map count as not found. A card is deleted once it stops
// being active or is closed or archived upstream.
func BuildSyncPlan(cards []*market.Card, statuses map[string]CardStatus) *SyncPlan {
	plan := &SyncPlan{}
	for _, card := range cards {
		status, ok := statuses[card.PolymarketID]
		if !ok || !status.Found {
			plan.NotFound = append(plan.NotFound, card)
			continue
		}

		if card.IsActive != status.Active {
			plan.Updates = append(plan.Updates, StatusUpdate{Card: card, Active: status.Active})
		}
		if !status.Active || status.Closed || status.Archived {
			plan.Deletions = append(plan.Deletions, Deletion{
				Card:   card,
				Reason: fmt.Sprintf("active=%t, closed=%t, archived=%t", status.Active, status.Closed, status.Archived),
			})
		}
	}
	return plan
}

// ApplySyncPlan writes the plan to the store: status updates first, then the
// deletions with their predictions and tag links.
func ApplySyncPlan(ctx context.Context, store marketstore.Store, plan *SyncPlan) error {
	for _, update := range plan.Updates {
		if err := store.SetCardActive(ctx, update.Card.PolymarketID, update.Active); err != nil {
			return fmt.Errorf("failed to update card %s: %w", update.Card.PolymarketID, err)
		}
	}

	if len(plan.Deletions) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(plan.Deletions))
	for _, deletion := range plan.Deletions {
		ids = append(ids, deletion.Card.ID)
	}
	if err := store.DeleteCards(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete cards: %w", err)
	}
	return nil
}
