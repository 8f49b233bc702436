package geolife

import (
	"math"
	"sort"
	"time"

	"github.com/golang/geo/s2"
	"github.com/jmoiron/sqlx"
	"github.com/rickar/cal/v2"
)

const earthRadiusMeters = 6371000.0

// metersPerDegreeLat is close enough for the bounding-box prefilter; the s2
// distance refine makes the final call.
const metersPerDegreeLat = 111320.0

// EntityCounts holds the record counts of the three collections
type EntityCounts struct {
	Users       int64 `json:"users"`
	Activities  int64 `json:"activities"`
	TrackPoints int64 `json:"trackpoints"`
}

// GetCounts counts users, activities and trackpoints
func GetCounts(db *sqlx.DB) (*EntityCounts, error) {
	counts := EntityCounts{}
	if err := db.Get(&counts.Users, "select count(*) from geolife_user"); err != nil {
		return nil, err
	}
	if err := db.Get(&counts.Activities, "select count(*) from activity"); err != nil {
		return nil, err
	}
	if err := db.Get(&counts.TrackPoints, "select count(*) from trackpoint"); err != nil {
		return nil, err
	}
	return &counts, nil
}

// ModeCount is one row of the transportation mode ranking
type ModeCount struct {
	TransportationMode string `db:"transportation_mode" json:"transportation_mode"`
	Activities         int64  `db:"activity_count" json:"activities"`
}

// TopTransportationModes ranks transportation modes by the number of labeled
// activities, most used first. Ties break on mode name.
func TopTransportationModes(db *sqlx.DB, k int) ([]ModeCount, error) {
	query := "select transportation_mode, count(*) as activity_count " +
		"from activity " +
		"where transportation_mode is not null " +
		"group by transportation_mode " +
		"order by activity_count desc, transportation_mode " +
		"limit ?"
	var modes []ModeCount
	err := db.Select(&modes, db.Rebind(query), k)
	return modes, err
}

// UserActivityCount is one row of the most-active-users ranking
type UserActivityCount struct {
	UserId     string `db:"user_id" json:"user_id"`
	Activities int64  `db:"activity_count" json:"activities"`
}

// MostActiveUsers ranks users by activity count, most active first
func MostActiveUsers(db *sqlx.DB, k int) ([]UserActivityCount, error) {
	query := "select user_id, count(*) as activity_count " +
		"from activity " +
		"group by user_id " +
		"order by activity_count desc, user_id " +
		"limit ?"
	var users []UserActivityCount
	err := db.Select(&users, db.Rebind(query), k)
	return users, err
}

// UserAltitudeGain is one row of the altitude gain ranking. Gain is the sum
// of positive altitude deltas, in the dataset's altitude unit (feet).
type UserAltitudeGain struct {
	UserId string  `json:"user_id"`
	Gain   float64 `json:"gain"`
}

// altitudeAccumulator carries the fold state between consecutive trackpoints
// of the same activity. A no-fix sentinel breaks the chain so deltas are only
// taken between consecutive valid readings.
type altitudeAccumulator struct {
	activityId   int64
	lastAltitude float64
	valid        bool
}

// UserAltitudeGains returns the k users who gained the most altitude,
// computed as an ordered fold over every activity's trackpoints.
func UserAltitudeGains(db *sqlx.DB, k int) ([]UserAltitudeGain, error) {
	query := "select a.user_id, t.activity_id, t.altitude " +
		"from trackpoint t " +
		"join activity a on a.id = t.activity_id " +
		"order by t.activity_id, t.id"
	rows, err := db.Queryx(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gains := make(map[string]float64)
	acc := altitudeAccumulator{}
	for rows.Next() {
		var userId string
		var activityId int64
		var altitude float64
		if err = rows.Scan(&userId, &activityId, &altitude); err != nil {
			return nil, err
		}
		if activityId != acc.activityId {
			acc = altitudeAccumulator{activityId: activityId}
		}
		if altitude == AltitudeNoFix {
			acc.valid = false
			continue
		}
		if acc.valid && altitude > acc.lastAltitude {
			gains[userId] += altitude - acc.lastAltitude
		}
		acc.lastAltitude = altitude
		acc.valid = true
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	ranked := make([]UserAltitudeGain, 0, len(gains))
	for userId, gain := range gains {
		ranked = append(ranked, UserAltitudeGain{UserId: userId, Gain: gain})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Gain != ranked[j].Gain {
			return ranked[i].Gain > ranked[j].Gain
		}
		return ranked[i].UserId < ranked[j].UserId
	})
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// UsersNear returns the sorted ids of users with at least one trackpoint
// within radiusMeters of (lat, lon). A bounding box narrows the scan in SQL,
// then each candidate point is checked against the great-circle distance.
func UsersNear(db *sqlx.DB, lat, lon, radiusMeters float64) ([]string, error) {
	latDelta := radiusMeters / metersPerDegreeLat
	lonScale := math.Cos(lat * math.Pi / 180)
	lonDelta := 180.0
	if lonScale > 1e-6 {
		lonDelta = radiusMeters / (metersPerDegreeLat * lonScale)
	}

	query := "select a.user_id, t.lat, t.lon " +
		"from trackpoint t " +
		"join activity a on a.id = t.activity_id " +
		"where t.lat between ? and ? and t.lon between ? and ?"
	rows, err := db.Queryx(db.Rebind(query),
		lat-latDelta, lat+latDelta, lon-lonDelta, lon+lonDelta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	center := s2.LatLngFromDegrees(lat, lon)
	nearby := make(map[string]bool)
	for rows.Next() {
		var userId string
		var pointLat, pointLon float64
		if err = rows.Scan(&userId, &pointLat, &pointLon); err != nil {
			return nil, err
		}
		if nearby[userId] {
			continue
		}
		point := s2.LatLngFromDegrees(pointLat, pointLon)
		if center.Distance(point).Radians()*earthRadiusMeters <= radiusMeters {
			nearby[userId] = true
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	userIds := make([]string, 0, len(nearby))
	for userId := range nearby {
		userIds = append(userIds, userId)
	}
	sort.Strings(userIds)
	return userIds, nil
}

// DayTypeCounts splits activities by the kind of day they started on
type DayTypeCounts struct {
	BusinessDays int64 `json:"business_days"`
	Weekends     int64 `json:"weekends"`
}

// ActivityDayTypes counts activities starting on business days versus
// weekends. The plain business calendar is used; the dataset predates any
// holiday calendar we could honestly apply to it.
func ActivityDayTypes(db *sqlx.DB) (*DayTypeCounts, error) {
	rows, err := db.Queryx("select start_date_time from activity")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calendar := cal.NewBusinessCalendar()
	counts := DayTypeCounts{}
	for rows.Next() {
		var start time.Time
		if err = rows.Scan(&start); err != nil {
			return nil, err
		}
		if calendar.IsWorkday(start) {
			counts.BusinessDays++
		} else {
			counts.Weekends++
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return &counts, nil
}
