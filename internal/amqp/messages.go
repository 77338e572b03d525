package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecomputeMessage asks the worker to recompute derived metrics for a month.
// It carries only the period, the worker reads everything else from storage.
type RecomputeMessage struct {
	Period    string    `json:"period"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecomputeMessage creates a recompute request for the given period
func NewRecomputeMessage(period, reason string) *RecomputeMessage {
	return &RecomputeMessage{
		Period:    period,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecomputeMessageFromJSON creates a message from JSON bytes
func RecomputeMessageFromJSON(data []byte) (*RecomputeMessage, error) {
	var msg RecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SnapshotCreatedMessage announces that a metric snapshot was persisted
type SnapshotCreatedMessage struct {
	EventID    string    `json:"event_id"`
	SnapshotID string    `json:"snapshot_id"`
	Kind       string    `json:"kind"`
	Period     string    `json:"period"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSnapshotCreatedMessage creates an event for a persisted snapshot
func NewSnapshotCreatedMessage(snapshotID, kind, period string) *SnapshotCreatedMessage {
	return &SnapshotCreatedMessage{
		EventID:    uuid.NewString(),
		SnapshotID: snapshotID,
		Kind:       kind,
		Period:     period,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotCreatedMessageFromJSON creates a message from JSON bytes
func SnapshotCreatedMessageFromJSON(data []byte) (*SnapshotCreatedMessage, error) {
	var msg SnapshotCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
