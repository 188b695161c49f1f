package oracledb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/predictionlabs/prediction-oracle/pkg/marketstore"
	mghelper "github.com/predictionlabs/prediction-oracle/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating event_cards table...")
		// polymarket_id and slug carry unique constraints from the model tags.
		return mghelper.CreateSchema(ctx, db, &marketstore.EventCardDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping event_cards table...")
		return mghelper.DropTables(ctx, db, &marketstore.EventCardDao{})
	})
}
