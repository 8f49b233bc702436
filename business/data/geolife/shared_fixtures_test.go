package geolife

import (
	"testing"
	"time"

	"github.com/OpenTrailTools/geolifestore/foundation/database"
	"github.com/jmoiron/sqlx"
)

// openTestDb creates an in-memory sqlite store with the geolife tables
func openTestDb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("unable to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err = CreateTables(db); err != nil {
		t.Fatalf("unable to create tables: %v", err)
	}
	return db
}

func testTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return parsed
}

func testStringPointer(s string) *string {
	return &s
}

// mustInsertActivity writes an activity inside its own transaction
func mustInsertActivity(t *testing.T, db *sqlx.DB, activity *Activity) {
	t.Helper()
	tx, err := db.Beginx()
	if err != nil {
		t.Fatalf("unable to begin transaction: %v", err)
	}
	if err = RecordActivity(activity, tx); err != nil {
		_ = tx.Rollback()
		t.Fatalf("unable to insert activity %d: %v", activity.Id, err)
	}
	if err = tx.Commit(); err != nil {
		t.Fatalf("unable to commit activity %d: %v", activity.Id, err)
	}
}

// mustInsertTrackPoints writes trackpoints inside their own transaction and
// returns the generated ids
func mustInsertTrackPoints(t *testing.T, db *sqlx.DB, trackPoints []*TrackPoint) []int64 {
	t.Helper()
	tx, err := db.Beginx()
	if err != nil {
		t.Fatalf("unable to begin transaction: %v", err)
	}
	ids, err := RecordTrackPoints(trackPoints, tx)
	if err != nil {
		_ = tx.Rollback()
		t.Fatalf("unable to insert trackpoints: %v", err)
	}
	if err = tx.Commit(); err != nil {
		t.Fatalf("unable to commit trackpoints: %v", err)
	}
	return ids
}

// mustInsertUsers writes users inside their own transaction
func mustInsertUsers(t *testing.T, db *sqlx.DB, users []*User) {
	t.Helper()
	tx, err := db.Beginx()
	if err != nil {
		t.Fatalf("unable to begin transaction: %v", err)
	}
	if err = RecordUsers(users, tx); err != nil {
		_ = tx.Rollback()
		t.Fatalf("unable to insert users: %v", err)
	}
	if err = tx.Commit(); err != nil {
		t.Fatalf("unable to commit users: %v", err)
	}
}
