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
		log.Println("creating event_snapshots table...")
		// Snapshot indexes live in the performance index migration.
		return mghelper.CreateSchema(ctx, db, &marketstore.EventSnapshotDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping event_snapshots table...")
		return mghelper.DropTables(ctx, db, &marketstore.EventSnapshotDao{})
	})
}
