// Package geolife provides CRUD functionality for Geolife trajectory records
package geolife

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// AltitudeNoFix is the altitude sentinel recorded when a trackpoint has no
// altitude fix. The dataset uses -777 (altitudes are in feet).
const AltitudeNoFix = -777

// User represents one user directory from the dataset. IsLabeled is true when
// the user id appears in the labeled-ids list.
type User struct {
	Id        string `db:"id" json:"id"`
	IsLabeled bool   `db:"is_labeled" json:"is_labeled"`
}

// IdList is an ordered list of trackpoint ids stored as a JSON array in a
// text column.
type IdList []int64

// Value implements driver.Valuer
func (l IdList) Value() (driver.Value, error) {
	if l == nil {
		l = IdList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *IdList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, l)
	case string:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into IdList", src)
	}
}

// Activity represents one accepted trajectory file. TransportationMode is nil
// unless a label interval matched the activity bounds exactly.
// TrackPointIds is empty at creation and filled by a single append update
// after all of the file's trackpoints have been inserted.
type Activity struct {
	Id                 int64     `db:"id" json:"id"`
	UserId             string    `db:"user_id" json:"user_id"`
	TransportationMode *string   `db:"transportation_mode" json:"transportation_mode"`
	StartDateTime      time.Time `db:"start_date_time" json:"start_date_time"`
	EndDateTime        time.Time `db:"end_date_time" json:"end_date_time"`
	TrackPointIds      IdList    `db:"trackpoint_ids" json:"trackpoint_ids"`
}

// TrackPoint represents one data line from a trajectory file. Id is generated
// by the store on insert. DateDays is the source format's fractional
// day-count timestamp, kept for fidelity with the file contents.
type TrackPoint struct {
	Id         int64     `db:"id" json:"id"`
	ActivityId int64     `db:"activity_id" json:"activity_id"`
	Lat        float64   `db:"lat" json:"lat"`
	Lon        float64   `db:"lon" json:"lon"`
	Altitude   float64   `db:"altitude" json:"altitude"`
	DateDays   float64   `db:"date_days" json:"date_days"`
	DateTime   time.Time `db:"date_time" json:"date_time"`
}

// RecordUsers saves users to database in a batch
func RecordUsers(users []*User, tx *sqlx.Tx) error {
	if len(users) == 0 {
		return nil
	}
	statementString := "insert into geolife_user ( " +
		"id, " +
		"is_labeled) " +
		"values (" +
		":id, " +
		":is_labeled)"
	statementString = tx.Rebind(statementString)
	_, err := tx.NamedExec(statementString, users)
	return err
}

// RecordActivity saves a new activity record. A duplicate id is reported as
// an error by the store's unique constraint, which is how a corpus-wide
// activity id collision surfaces.
func RecordActivity(activity *Activity, tx *sqlx.Tx) error {
	statementString := "insert into activity ( " +
		"id, " +
		"user_id, " +
		"transportation_mode, " +
		"start_date_time, " +
		"end_date_time, " +
		"trackpoint_ids) " +
		"values (" +
		":id, " +
		":user_id, " +
		":transportation_mode, " +
		":start_date_time, " +
		":end_date_time, " +
		":trackpoint_ids)"
	statementString = tx.Rebind(statementString)
	_, err := tx.NamedExec(statementString, activity)
	return err
}

// RecordTrackPoints saves trackPoints to database in one multi-row insert and
// returns the store-generated ids in insertion order. The generated ids are
// also set on the passed records.
func RecordTrackPoints(trackPoints []*TrackPoint, tx *sqlx.Tx) ([]int64, error) {
	if len(trackPoints) == 0 {
		return nil, nil
	}
	var statement strings.Builder
	statement.WriteString("insert into trackpoint ( " +
		"activity_id, " +
		"lat, " +
		"lon, " +
		"altitude, " +
		"date_days, " +
		"date_time) " +
		"values ")
	args := make([]interface{}, 0, len(trackPoints)*6)
	for i, trackPoint := range trackPoints {
		if i > 0 {
			statement.WriteString(", ")
		}
		statement.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args,
			trackPoint.ActivityId,
			trackPoint.Lat,
			trackPoint.Lon,
			trackPoint.Altitude,
			trackPoint.DateDays,
			trackPoint.DateTime)
	}
	statement.WriteString(" returning id")

	rows, err := tx.Queryx(tx.Rebind(statement.String()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, len(trackPoints))
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != len(trackPoints) {
		return nil, fmt.Errorf("inserted %d trackpoints but store returned %d ids", len(trackPoints), len(ids))
	}
	for i, trackPoint := range trackPoints {
		trackPoint.Id = ids[i]
	}
	return ids, nil
}

// AppendTrackPointIds appends ids onto the activity's trackpoint id list in a
// single update. Append, not replace: ids already on the record stay, and no
// deduplication is performed.
func AppendTrackPointIds(db *sqlx.DB, activityId int64, ids []int64) error {
	var existing IdList
	query := db.Rebind("select trackpoint_ids from activity where id = ?")
	if err := db.Get(&existing, query, activityId); err != nil {
		return fmt.Errorf("reading trackpoint ids for activity %d: %w", activityId, err)
	}
	updated := append(existing, ids...)
	value, err := updated.Value()
	if err != nil {
		return err
	}
	update := db.Rebind("update activity set trackpoint_ids = ? where id = ?")
	if _, err = db.Exec(update, value, activityId); err != nil {
		return fmt.Errorf("updating trackpoint ids for activity %d: %w", activityId, err)
	}
	return nil
}

// GetUser retrieves User with userId
func GetUser(db *sqlx.DB, userId string) (*User, error) {
	user := User{}
	err := db.Get(&user, db.Rebind("select * from geolife_user where id = ?"), userId)
	return &user, err
}

// GetActivity retrieves Activity with activityId
func GetActivity(db *sqlx.DB, activityId int64) (*Activity, error) {
	activity := Activity{}
	err := db.Get(&activity, db.Rebind("select * from activity where id = ?"), activityId)
	return &activity, err
}

// GetActivityTrackPoints retrieves all trackpoints of an activity in
// insertion order
func GetActivityTrackPoints(db *sqlx.DB, activityId int64) ([]TrackPoint, error) {
	var trackPoints []TrackPoint
	query := db.Rebind("select * from trackpoint where activity_id = ? order by id")
	err := db.Select(&trackPoints, query, activityId)
	return trackPoints, err
}
