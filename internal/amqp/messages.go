package amqp

import (
	"encoding/json"
	"time"
)

// SyncNudge tells a sync worker that the outbox has new work. It carries
// only identifiers; the worker reads the payload from the outbox itself.
type SyncNudge struct {
	OutboxID  int64     `json:"outbox_id"`
	Kind      string    `json:"kind"`
	RecordID  string    `json:"record_id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncNudge(outboxID int64, kind, recordID, operation string) *SyncNudge {
	return &SyncNudge{
		OutboxID:  outboxID,
		Kind:      kind,
		RecordID:  recordID,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

func (m *SyncNudge) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncNudgeFromJSON(data []byte) (*SyncNudge, error) {
	var msg SyncNudge
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
