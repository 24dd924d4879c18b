package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"gorm.io/gorm"
)

// AuditTrail rows are append-only. There is no update or delete path; the
// table is the system of record for who did what, when, from where.
type AuditTrail struct {
	ID            int         `gorm:"primary_key" json:"id"`
	Action        AuditAction `gorm:"size:20;not null;index" json:"action"`
	ReferenceId   int         `gorm:"index" json:"reference_id"`
	ReferenceType string      `gorm:"size:50;index" json:"reference_type"`
	Before        string      `gorm:"type:text" json:"before"`
	After         string      `gorm:"type:text" json:"after"`
	Description   string      `gorm:"type:text" json:"description"`
	Reason        string      `gorm:"type:text" json:"reason"`
	UserId        int         `gorm:"index;not null" json:"user_id"`
	Username      string      `gorm:"size:100" json:"username"`
	OriginIP      string      `gorm:"size:45" json:"origin_ip"`
	UserAgent     string      `gorm:"size:255" json:"user_agent"`
	CorrelationId string      `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
}

// EmitAuditTx writes one audit row inside the caller's transaction, pulling
// the actor and origin off the transaction's context. Workflow transitions
// commit atomically with their audit evidence or not at all.
func EmitAuditTx(tx *gorm.DB, action AuditAction, referenceId int, referenceType string,
	before interface{}, after interface{}, description, reason string) error {

	ctx := tx.Statement.Context

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok {
		return errors.New("username is required")
	}

	originIP, _ := utils.GetOriginIPFromContext(ctx)
	userAgent, _ := utils.GetUserAgentFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	audit := AuditTrail{
		Action:        action,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
		Before:        string(b),
		After:         string(a),
		Description:   description,
		Reason:        reason,
		UserId:        userId,
		Username:      username,
		OriginIP:      originIP,
		UserAgent:     userAgent,
		CorrelationId: correlationId,
	}
	return tx.Create(&audit).Error
}

type AuditFilter struct {
	Action        AuditAction
	ReferenceId   int
	ReferenceType string
	UserId        int
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

func ListAuditTrail(ctx context.Context, filter AuditFilter) ([]*AuditTrail, int64, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&AuditTrail{})

	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.ReferenceId > 0 {
		q = q.Where("reference_id = ?", filter.ReferenceId)
	}
	if filter.ReferenceType != "" {
		q = q.Where("reference_type = ?", filter.ReferenceType)
	}
	if filter.UserId > 0 {
		q = q.Where("user_id = ?", filter.UserId)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = config.SearchLimit
	}

	var rows []*AuditTrail
	if err := q.Order("id DESC").Limit(limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}
