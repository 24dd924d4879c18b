package models

import (
	"context"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"gorm.io/gorm"
)

type Request struct {
	ID                 int                `gorm:"primary_key" json:"id"`
	RequestType        RequestType        `gorm:"type:enum('Storage','Withdrawal','Destruction');not null;index" json:"request_type"`
	Status             RequestStatus      `gorm:"type:enum('Pending','Sent Back','Approved','Issued','Returned','Rejected','Completed');default:Pending;index" json:"status"`
	RequestedById      int                `gorm:"not null;index" json:"requested_by_id"`
	RequestedBy        User               `gorm:"foreignKey:RequestedById" json:"requested_by"`
	ApprovedById       *int               `json:"approved_by_id"`
	UnitId             int                `gorm:"not null;index" json:"unit_id"`
	Unit               Unit               `json:"unit"`
	DepartmentId       int                `gorm:"not null" json:"department_id"`
	Department         Department         `json:"department"`
	SectionId          *int               `json:"section_id"`
	Section            *Section           `json:"section"`
	CrateId            *int               `gorm:"index" json:"crate_id"`
	Crate              *Crate             `json:"crate"`
	DestructionDate    *time.Time         `json:"destruction_date"`
	ToCentral          bool               `gorm:"not null;default:false" json:"to_central"`
	ToBeRetained       bool               `gorm:"not null;default:false" json:"to_be_retained"`
	Purpose            string             `gorm:"type:text" json:"purpose"`
	ExpectedReturnDate *time.Time         `json:"expected_return_date"`
	IssueDate          *time.Time         `json:"issue_date"`
	ReturnDate         *time.Time         `json:"return_date"`
	FullWithdrawal     bool               `gorm:"not null;default:false" json:"full_withdrawal"`
	Documents          []*RequestDocument `gorm:"foreignKey:RequestId" json:"documents"`
	SendBacks          []*SendBack        `gorm:"foreignKey:RequestId" json:"send_backs"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// SendBack records one reviewer push-back or rejection on a request. Rows
// are append-only; the full trail survives resubmission.
type SendBack struct {
	ID          int          `gorm:"primary_key" json:"id"`
	RequestId   int          `gorm:"not null;index" json:"request_id"`
	Type        SendBackType `gorm:"type:enum('Change Request','Return Note','Rejection');not null" json:"type"`
	Reason      string       `gorm:"type:text;not null" json:"reason"`
	CreatedById int          `gorm:"not null" json:"created_by_id"`
	CreatedBy   User         `gorm:"foreignKey:CreatedById" json:"created_by"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func GetRequest(ctx context.Context, id int) (*Request, error) {
	db := config.GetDB()
	var req Request
	if err := db.WithContext(ctx).
		Preload("RequestedBy").Preload("Unit").Preload("Department").Preload("Section").
		Preload("Crate").Preload("Documents.Document").
		Preload("SendBacks", func(q *gorm.DB) *gorm.DB { return q.Order("id DESC") }).
		Preload("SendBacks.CreatedBy").
		Where("id = ?", id).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &req, nil
}

func GetRequestTx(tx *gorm.DB, id int) (*Request, error) {
	var req Request
	if err := tx.Preload("Documents").Where("id = ?", id).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &req, nil
}

// TransitionRequestTx moves a request from one status to another with a
// guarded update. A zero-row result means another actor got there first (or
// the request is gone) and surfaces as ErrStaleState.
func TransitionRequestTx(tx *gorm.DB, requestId int, from, to RequestStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := tx.Model(&Request{}).
		Where("id = ? AND status = ?", requestId, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&Request{}).Where("id = ?", requestId).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return utils.ErrorRecordNotFound
		}
		return ErrStaleState
	}
	return nil
}

// HasActiveRequestForCrateTx reports whether the crate already has a
// Withdrawal or Destruction request in a non-terminal status. The count is a
// non-locking read; callers must hold the crate row lock (LockCrateTx) in
// the same transaction, otherwise two concurrent submissions can both see
// zero and both insert.
func HasActiveRequestForCrateTx(tx *gorm.DB, crateId int) (bool, error) {
	var count int64
	err := tx.Model(&Request{}).
		Where("crate_id = ? AND request_type IN ? AND status NOT IN ?",
			crateId,
			[]RequestType{RequestTypeWithdrawal, RequestTypeDestruction},
			[]RequestStatus{RequestStatusRejected, RequestStatusCompleted}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func CreateSendBackTx(tx *gorm.DB, requestId int, sbType SendBackType, reason string, createdById int) error {
	sb := SendBack{
		RequestId:   requestId,
		Type:        sbType,
		Reason:      reason,
		CreatedById: createdById,
	}
	return tx.Create(&sb).Error
}

type RequestFilter struct {
	RequestType   RequestType
	Status        RequestStatus
	UnitId        int
	CrateId       int
	RequestedById int
	Overdue       bool
	Limit         int
	Offset        int
}

func ListRequests(ctx context.Context, filter RequestFilter) ([]*Request, int64, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&Request{})

	if filter.RequestType != "" {
		q = q.Where("request_type = ?", filter.RequestType)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UnitId > 0 {
		q = q.Where("unit_id = ?", filter.UnitId)
	}
	if filter.CrateId > 0 {
		q = q.Where("crate_id = ?", filter.CrateId)
	}
	if filter.RequestedById > 0 {
		q = q.Where("requested_by_id = ?", filter.RequestedById)
	}
	if filter.Overdue {
		q = q.Where("request_type = ? AND status = ? AND expected_return_date < ?",
			RequestTypeWithdrawal, RequestStatusIssued, time.Now())
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = config.SearchLimit
	}

	var requests []*Request
	if err := q.Preload("RequestedBy").Preload("Unit").Preload("Crate").
		Order("id DESC").Limit(limit).Offset(filter.Offset).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, count, nil
}
