package geolifemanager

import (
	"io"
	logger "log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenTrailTools/geolifestore/business/data/geolife"
	"github.com/OpenTrailTools/geolifestore/foundation/database"
	"github.com/jmoiron/sqlx"
)

// pltContent builds a trajectory file body from data lines, prefixed with
// the fixed 6-line preamble real files carry.
func pltContent(dataLines ...string) string {
	preamble := []string{
		"Geolife trajectory",
		"WGS 84",
		"Altitude is in Feet",
		"Reserved 3",
		"0,2,255,My Track,0,0,2,8421376",
		"0",
	}
	return strings.Join(append(preamble, dataLines...), "\n") + "\n"
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unable to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unable to write %s: %v", path, err)
	}
}

func openTestDb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("unable to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err = geolife.CreateTables(db); err != nil {
		t.Fatalf("unable to create tables: %v", err)
	}
	return db
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, "", 0)
}

func testTime(t *testing.T, layout, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(layout, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return parsed
}
