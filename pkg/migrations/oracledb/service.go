// Package oracledb holds all the migrations for the oracle database
package oracledb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the oracle database
var Migrations = migrate.NewMigrations()
