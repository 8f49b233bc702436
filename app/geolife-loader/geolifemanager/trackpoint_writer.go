package geolifemanager

import (
	logger "log"

	"github.com/OpenTrailTools/geolifestore/business/data/geolife"
	"github.com/jmoiron/sqlx"
)

// trackPointWriter accumulates the trackpoints of one activity and inserts
// them in fixed-size batches, collecting the store-generated ids in flush
// order. finish flushes the trailing partial batch and appends the full id
// list onto the activity record in a single update.
//
// A failed batch insert is fatal for the file: already-inserted batches are
// not rolled back, which is the accepted at-least-once risk of a batch
// pipeline without cross-batch transactions.
type trackPointWriter struct {
	log        *logger.Logger
	db         *sqlx.DB
	activityId int64
	batchSize  int
	batch      []*geolife.TrackPoint
	ids        []int64
}

func newTrackPointWriter(log *logger.Logger, db *sqlx.DB, activityId int64, batchSize int) *trackPointWriter {
	return &trackPointWriter{
		log:        log,
		db:         db,
		activityId: activityId,
		batchSize:  batchSize,
		batch:      make([]*geolife.TrackPoint, 0, batchSize),
	}
}

// addPoint buffers trackPoint, flushing when the batch is full
func (w *trackPointWriter) addPoint(trackPoint *geolife.TrackPoint) error {
	trackPoint.ActivityId = w.activityId
	w.batch = append(w.batch, trackPoint)
	if len(w.batch) == w.batchSize {
		return w.flush()
	}
	return nil
}

// flush bulk-inserts the buffered trackpoints in one statement and records
// their generated ids
func (w *trackPointWriter) flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	var ids []int64
	err := transact(w.log, w.db, func(tx *sqlx.Tx) error {
		var innerErr error
		ids, innerErr = geolife.RecordTrackPoints(w.batch, tx)
		return innerErr
	})
	if err != nil {
		return err
	}
	w.ids = append(w.ids, ids...)

	// truncate the batch
	w.batch = make([]*geolife.TrackPoint, 0, w.batchSize)
	return nil
}

// finish flushes any remaining trackpoints and pushes the collected ids onto
// the owning activity. Exactly one update per activity.
func (w *trackPointWriter) finish() error {
	if err := w.flush(); err != nil {
		return err
	}
	return geolife.AppendTrackPointIds(w.db, w.activityId, w.ids)
}

// writtenPointCount reports how many trackpoints have been flushed so far
func (w *trackPointWriter) writtenPointCount() int {
	return len(w.ids)
}
