package models

import (
	"encoding/json"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"gorm.io/gorm"
)

// ArchiveEventRecord is the transactional outbox row behind Pub/Sub
// publication. The workflow writes the row in the same transaction as the
// state change; the dispatcher publishes after commit, so downstream
// consumers never see an event for a change that rolled back.
type ArchiveEventRecord struct {
	ID            int       `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	EventType     string    `gorm:"size:50;not null;index" json:"event_type"`
	Action        string    `gorm:"size:20;not null" json:"action"`
	ActionTime    time.Time `gorm:"not null" json:"action_time"`
	UserId        *int      `json:"user_id"`
	Username      string    `gorm:"size:100" json:"username"`
	RequestId     *int      `gorm:"index" json:"request_id"`
	CrateId       *int      `gorm:"index" json:"crate_id"`
	StorageId     *int      `json:"storage_id"`
	Payload       []byte    `gorm:"type:blob" json:"payload"`
	Reason        *string   `gorm:"type:text" json:"reason"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToPubSubMessage(record ArchiveEventRecord) config.PubSubMessage {
	msg := config.PubSubMessage{
		ID:            record.ID,
		EventType:     record.EventType,
		Action:        record.Action,
		ActionTime:    record.ActionTime,
		UserId:        record.UserId,
		Username:      record.Username,
		RequestId:     record.RequestId,
		CrateId:       record.CrateId,
		StorageId:     record.StorageId,
		Reason:        record.Reason,
		CorrelationId: record.CorrelationId,
	}
	if len(record.Payload) > 0 {
		msg.Message = string(record.Payload)
	}
	return msg
}

// QueueArchiveEventTx appends an outbox row inside the caller's transaction.
// The dispatcher picks it up after commit.
func QueueArchiveEventTx(tx *gorm.DB, eventType string, action AuditAction,
	requestId, crateId, storageId *int, payload interface{}, reason string) error {

	ctx := tx.Statement.Context

	record := ArchiveEventRecord{
		EventType:     eventType,
		Action:        string(action),
		ActionTime:    time.Now(),
		PublishStatus: OutboxPublishStatusPending,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		record.UserId = &userId
	}
	if username, ok := utils.GetUsernameFromContext(ctx); ok {
		record.Username = username
	}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		record.CorrelationId = correlationId
	}
	record.RequestId = requestId
	record.CrateId = crateId
	record.StorageId = storageId
	record.Reason = utils.NilIfEmpty(reason)
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		record.Payload = b
	}
	return tx.Create(&record).Error
}
