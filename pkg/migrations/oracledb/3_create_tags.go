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
		log.Println("creating tags and card_tags tables...")
		if err := mghelper.CreateSchema(ctx, db, &marketstore.TagDao{}); err != nil {
			return err
		}
		_, err := db.NewCreateTable().
			Model((*marketstore.CardTagDao)(nil)).
			IfNotExists().
			ForeignKey(`("card_id") REFERENCES "event_cards" ("id") ON DELETE CASCADE`).
			ForeignKey(`("tag_id") REFERENCES "tags" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping tags and card_tags tables...")
		return mghelper.DropTables(ctx, db, &marketstore.CardTagDao{}, &marketstore.TagDao{})
	})
}
