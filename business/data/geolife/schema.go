package geolife

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// createStatements returns the table and index DDL for driverName. The only
// driver-specific piece is the generated trackpoint id column.
func createStatements(driverName string) []string {
	trackPointIdColumn := "bigserial primary key"
	if driverName == "sqlite" {
		trackPointIdColumn = "integer primary key autoincrement"
	}
	return []string{
		"create table if not exists geolife_user (" +
			"id text primary key, " +
			"is_labeled boolean not null)",
		"create table if not exists activity (" +
			"id bigint primary key, " +
			"user_id text not null, " +
			"transportation_mode text, " +
			"start_date_time timestamp not null, " +
			"end_date_time timestamp not null, " +
			"trackpoint_ids text not null)",
		"create table if not exists trackpoint (" +
			"id " + trackPointIdColumn + ", " +
			"activity_id bigint not null, " +
			"lat double precision not null, " +
			"lon double precision not null, " +
			"altitude double precision not null, " +
			"date_days double precision not null, " +
			"date_time timestamp not null)",
		"create index if not exists trackpoint_activity_idx on trackpoint (activity_id)",
		"create index if not exists trackpoint_position_idx on trackpoint (lat, lon)",
	}
}

// CreateTables creates the user, activity and trackpoint tables and their
// indexes if they do not exist yet.
func CreateTables(db *sqlx.DB) error {
	for _, statement := range createStatements(db.DriverName()) {
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("running %q: %w", statement, err)
		}
	}
	return nil
}

// DropTables removes all geolife tables. Needed before re-running a load:
// ingestion is not idempotent and duplicates records when run over a
// populated store.
func DropTables(db *sqlx.DB) error {
	for _, table := range []string{"trackpoint", "activity", "geolife_user"} {
		if _, err := db.Exec("drop table if exists " + table); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}
	return nil
}
