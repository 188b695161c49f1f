package oracledb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/predictionlabs/prediction-oracle/pkg/pgutil/migrations"
)

// The hot paths these indexes serve:
//   - latest-snapshot lookups per event (DISTINCT ON over polymarket_id, created_at DESC)
//   - the card list endpoint (is_active filter + volume ordering)
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("adding performance indexes...")

		// Overlaps the composite snapshot index below; both stay until
		// production query plans justify dropping one.
		if err := mghelper.CreateIndex(ctx, db, "event_snapshots", "idx_event_snapshots_polymarket_id", "polymarket_id"); err != nil {
			return err
		}

		if err := mghelper.CreatePartialIndexExpr(ctx, db, "event_cards", "idx_event_cards_is_active",
			"is_active", "is_active = true"); err != nil {
			return err
		}

		if err := mghelper.CreateIndexExpr(ctx, db, "event_cards", "idx_event_cards_volume",
			"volume DESC NULLS LAST"); err != nil {
			return err
		}

		if err := mghelper.CreatePartialIndexExpr(ctx, db, "event_cards", "idx_event_cards_active_volume",
			"is_active, volume DESC NULLS LAST", "is_active = true"); err != nil {
			return err
		}

		return mghelper.CreateIndexExpr(ctx, db, "event_snapshots", "idx_event_snapshots_polymarket_created",
			"polymarket_id, created_at DESC")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping performance indexes...")
		return mghelper.DropIndexes(ctx, db,
			"idx_event_snapshots_polymarket_id",
			"idx_event_cards_is_active",
			"idx_event_cards_volume",
			"idx_event_cards_active_volume",
			"idx_event_snapshots_polymarket_created",
		)
	})
}
