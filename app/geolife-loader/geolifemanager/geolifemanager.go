// Package geolifemanager provides support for reading a Geolife dataset
// directory tree and loading its users, activities and trackpoints into a
// database.
package geolifemanager

import (
	"errors"
	"fmt"
	"io"
	logger "log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenTrailTools/geolifestore/business/data/geolife"
	"github.com/jmoiron/sqlx"
)

// DefaultBatchSize is the trackpoint count per bulk insert.
const DefaultBatchSize = 10000

// DefaultMaxPointsPerFile is the data-line ceiling above which a trajectory
// file is skipped entirely.
const DefaultMaxPointsPerFile = 2500

// Config carries the ingestion inputs
type Config struct {
	DatasetRoot      string
	LabeledIdsFile   string
	BatchSize        int
	MaxPointsPerFile int
}

func (c *Config) applyDefaults() {
	if c.BatchSize < 1 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxPointsPerFile < 1 {
		c.MaxPointsPerFile = DefaultMaxPointsPerFile
	}
}

// SkippedFile records one trajectory file that produced no records and why
type SkippedFile struct {
	UserId string `json:"user_id"`
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// RunSummary reports what one ingestion run accomplished
type RunSummary struct {
	Users       int
	Activities  int
	TrackPoints int
	Skipped     []SkippedFile
}

// InsertUsers enumerates the top-level user directories under datasetRoot
// and records one User per directory, labeled according to the id list at
// labeledIdsFile. Returns the number of users inserted; an empty dataset is
// not an error.
func InsertUsers(log *logger.Logger, db *sqlx.DB, datasetRoot, labeledIdsFile string) (int, error) {
	labeledIds, err := loadLabeledIds(labeledIdsFile)
	if err != nil {
		return 0, fmt.Errorf("reading labeled id list: %w", err)
	}
	dirs, err := listUserDirs(datasetRoot)
	if err != nil {
		return 0, fmt.Errorf("reading dataset root: %w", err)
	}
	if len(dirs) == 0 {
		log.Printf("no user directories found under %s, nothing to insert", datasetRoot)
		return 0, nil
	}
	users := make([]*geolife.User, 0, len(dirs))
	for _, dir := range dirs {
		users = append(users, &geolife.User{Id: dir, IsLabeled: labeledIds[dir]})
	}
	err = transact(log, db, func(tx *sqlx.Tx) error {
		return geolife.RecordUsers(users, tx)
	})
	if err != nil {
		return 0, fmt.Errorf("inserting users: %w", err)
	}
	log.Printf("inserted %d users, %d labeled", len(users), len(labeledIds))
	return len(users), nil
}

// LoadDataset runs the full trajectory ingestion: one user at a time, the
// user's label index is built, then every trajectory file is parsed, matched
// against the labels and written as one activity plus its trackpoints.
//
// Files with structural problems or too many points are skipped and listed
// in the summary; a store write failure aborts the run with the offending
// user and file in the error. Batches already committed for the aborted file
// are not rolled back.
//
// Re-running over the same input without dropping the store is not
// idempotent: the duplicate activity ids fail the run, and re-ingesting
// trackpoints for an existing activity duplicates points and appends
// duplicate ids.
func LoadDataset(log *logger.Logger, db *sqlx.DB, cfg Config, progress *ProgressPublisher) (*RunSummary, error) {
	cfg.applyDefaults()
	summary := &RunSummary{}
	err := forEachTrajectoryUser(cfg.DatasetRoot, func(u userDirectory) error {
		return loadUser(log, db, cfg, u, summary, progress)
	})
	if err != nil {
		return summary, err
	}
	log.Printf("loaded %d activities and %d trackpoints for %d users, skipped %d files",
		summary.Activities, summary.TrackPoints, summary.Users, len(summary.Skipped))
	for _, skipped := range summary.Skipped {
		log.Printf("skipped %s/%s: %s", skipped.UserId, skipped.File, skipped.Reason)
	}
	return summary, nil
}

// loadUser processes one user directory: label index first, then every
// trajectory file. File-scoped errors skip the file; store errors propagate
// and end the run.
func loadUser(log *logger.Logger,
	db *sqlx.DB,
	cfg Config,
	u userDirectory,
	summary *RunSummary,
	progress *ProgressPublisher) error {

	labels, err := loadLabelIndex(u.labelsPath)
	if err != nil {
		var fileErr *parseError
		if !errors.As(err, &fileErr) {
			return fmt.Errorf("user %s: reading label file: %w", u.userId, err)
		}
		// a malformed label file only costs this user its modes
		log.Printf("ignoring label file for user %s: %v", u.userId, err)
		labels = labelIndex{}
	}

	files, err := u.trajectoryFiles()
	if err != nil {
		return fmt.Errorf("user %s: listing trajectory files: %w", u.userId, err)
	}

	summary.Users++
	for _, name := range files {
		err = loadTrajectoryFile(log, db, cfg, u, name, labels, summary, progress)
		if err == nil {
			continue
		}
		var tooLong *fileTooLongError
		var fileErr *parseError
		switch {
		case errors.As(err, &tooLong):
			// over the ceiling is a scope limit, not a failure
			summary.Skipped = append(summary.Skipped,
				SkippedFile{UserId: u.userId, File: name, Reason: err.Error()})
			progress.publish(FileProgress{UserId: u.userId, File: name, Skipped: true, Reason: err.Error()})
		case errors.As(err, &fileErr):
			log.Printf("skipping file %s for user %s: %v", name, u.userId, err)
			summary.Skipped = append(summary.Skipped,
				SkippedFile{UserId: u.userId, File: name, Reason: err.Error()})
			progress.publish(FileProgress{UserId: u.userId, File: name, Skipped: true, Reason: err.Error()})
		default:
			return fmt.Errorf("user %s, file %s: %w", u.userId, name, err)
		}
	}
	return nil
}

// loadTrajectoryFile turns one accepted .plt file into an activity and its
// trackpoints. The whole stream is validated before the activity shell is
// written, so a malformed line rejects the file without leaving records
// behind. Writes are two-phase: activity shell first, trackpoint batches,
// then a single update pushing the generated ids onto the activity.
func loadTrajectoryFile(log *logger.Logger,
	db *sqlx.DB,
	cfg Config,
	u userDirectory,
	name string,
	labels labelIndex,
	summary *RunSummary,
	progress *ProgressPublisher) error {

	path := filepath.Join(u.trajectoryPath, name)
	plt, err := openPLTFile(path, cfg.MaxPointsPerFile)
	if err != nil {
		return err
	}
	start, end, err := plt.bounds()
	if err != nil {
		return err
	}
	activityId, err := activityIdFor(name, u.userId)
	if err != nil {
		return &parseError{File: path, Err: err}
	}

	// validation pass over the full stream
	for {
		_, err = plt.nextPoint()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	mode := labels.modeFor(start, end)
	activity := &geolife.Activity{
		Id:                 activityId,
		UserId:             u.userId,
		TransportationMode: mode,
		StartDateTime:      start,
		EndDateTime:        end,
		TrackPointIds:      geolife.IdList{},
	}
	err = transact(log, db, func(tx *sqlx.Tx) error {
		return geolife.RecordActivity(activity, tx)
	})
	if err != nil {
		return fmt.Errorf("inserting activity %d: %w", activityId, err)
	}

	// write pass
	writer := newTrackPointWriter(log, db, activityId, cfg.BatchSize)
	plt.reset()
	for {
		trackPoint, err := plt.nextPoint()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err = writer.addPoint(trackPoint); err != nil {
			return fmt.Errorf("inserting trackpoints for activity %d: %w", activityId, err)
		}
	}
	if err = writer.finish(); err != nil {
		return fmt.Errorf("finishing activity %d: %w", activityId, err)
	}

	summary.Activities++
	summary.TrackPoints += writer.writtenPointCount()
	progress.publish(FileProgress{
		UserId:             u.userId,
		File:               name,
		Points:             writer.writtenPointCount(),
		TransportationMode: mode,
	})
	return nil
}

// activityIdFor derives the corpus-wide activity id by concatenating the
// file name stem with the user id and parsing the result as an integer,
// e.g. 20081023025304.plt for user 010 becomes 20081023025304010.
// Deterministic, and injective as long as user ids keep their fixed width.
func activityIdFor(fileName, userId string) (int64, error) {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	id, err := strconv.ParseInt(stem+userId, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot derive activity id from file %q and user %q: %w", fileName, userId, err)
	}
	return id, nil
}

/*
transact starts a Transaction on sqlx.DB, calls txFunc and commits or rolls back the transaction depending on the
return code of the txFunc result
*/
func transact(log *logger.Logger, db *sqlx.DB, txFunc func(*sqlx.Tx) error) (err error) {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback() // err is non-nil; don't change it
			if rollbackErr != nil {
				log.Printf("Received error while attempting to rollback transaction. error:%v", rollbackErr)
			}
			return
		}
		err = tx.Commit() // err is nil; if Commit returns error update err
	}()
	err = txFunc(tx)
	return err
}
