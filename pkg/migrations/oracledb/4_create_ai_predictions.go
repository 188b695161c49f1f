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
		log.Println("creating ai_predictions table...")
		_, err := db.NewCreateTable().
			Model((*marketstore.AIPredictionDao)(nil)).
			IfNotExists().
			ForeignKey(`("card_id") REFERENCES "event_cards" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return err
		}
		// Create indexes
		return mghelper.CreateModelIndexes(ctx, db, &marketstore.AIPredictionDao{}, "card_id", "created_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping ai_predictions table...")
		return mghelper.DropTables(ctx, db, &marketstore.AIPredictionDao{})
	})
}
