package geolifemanager

import (
	"encoding/json"
	logger "log"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ProgressSubject is the NATS subject ingestion progress messages are
// published to.
const ProgressSubject = "geolife.ingest.progress"

// FileProgress describes the outcome of one trajectory file, published after
// the file has been fully processed or skipped.
type FileProgress struct {
	RunId              string  `json:"run_id"`
	UserId             string  `json:"user_id"`
	File               string  `json:"file"`
	Points             int     `json:"points"`
	TransportationMode *string `json:"transportation_mode"`
	Skipped            bool    `json:"skipped"`
	Reason             string  `json:"reason,omitempty"`
}

// ProgressPublisher sends one FileProgress message per trajectory file over
// NATS, each run tagged with a fresh uuid. Publish failures are logged and
// never affect the ingestion run.
type ProgressPublisher struct {
	log            *logger.Logger
	natsConnection *nats.Conn
	runId          string
}

// MakeProgressPublisher creates a ProgressPublisher for one ingestion run
func MakeProgressPublisher(log *logger.Logger, natsConnection *nats.Conn) *ProgressPublisher {
	return &ProgressPublisher{
		log:            log,
		natsConnection: natsConnection,
		runId:          uuid.NewString(),
	}
}

// publish is nil-safe so the loader can run with progress events disabled
func (p *ProgressPublisher) publish(progress FileProgress) {
	if p == nil || p.natsConnection == nil {
		return
	}
	progress.RunId = p.runId
	jsonData, err := json.Marshal(progress)
	if err != nil {
		p.log.Printf("failed to marshal FileProgress in ProgressPublisher.publish, error:%v", err)
		return
	}
	err = p.natsConnection.Publish(ProgressSubject, jsonData)
	if err != nil {
		p.log.Printf("failed to send FileProgress in ProgressPublisher.publish, error:%v", err)
	}
}
