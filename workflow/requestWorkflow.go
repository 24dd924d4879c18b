package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"gorm.io/gorm"
)

const minSendBackReasonLen = 10

type actor struct {
	UserId     int
	User       *models.User
	Privileges map[string]bool
}

func loadActor(ctx context.Context) (*actor, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, models.ErrUnauthorized
	}
	user, err := models.GetUser(ctx, userId)
	if err != nil {
		return nil, models.ErrUnauthorized
	}
	if !user.IsUsable() {
		return nil, models.ErrUnauthorized
	}
	privileges, err := models.GetPrivilegeCodenames(ctx, user.RoleId)
	if err != nil {
		return nil, err
	}
	return &actor{UserId: userId, User: user, Privileges: privileges}, nil
}

type NewStorageRequest struct {
	UnitId          int                   `json:"unit_id" binding:"required"`
	DepartmentId    int                   `json:"department_id" binding:"required"`
	SectionId       *int                  `json:"section_id"`
	DestructionDate *time.Time            `json:"destruction_date"`
	ToCentral       bool                  `json:"to_central"`
	ToBeRetained    bool                  `json:"to_be_retained"`
	Purpose         string                `json:"purpose"`
	Documents       []*models.NewDocument `json:"documents" binding:"required,min=1,dive"`
}

type NewWithdrawalRequest struct {
	CrateId            int        `json:"crate_id" binding:"required"`
	Purpose            string     `json:"purpose" binding:"required"`
	ExpectedReturnDate *time.Time `json:"expected_return_date" binding:"required"`
	FullWithdrawal     bool       `json:"full_withdrawal"`
	DocumentIds        []int      `json:"document_ids"`
}

type NewDestructionRequest struct {
	CrateId int    `json:"crate_id" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// SubmitStorageRequest creates a Pending storage request with its proposed
// document set. The crate itself does not exist until approval.
func SubmitStorageRequest(ctx context.Context, input *NewStorageRequest) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	if !act.Privileges[models.PrivilegeCreateRequest] {
		return nil, models.ErrUnauthorized
	}
	if !models.UserBelongsToUnit(act.User, input.UnitId) {
		return nil, models.ErrUnauthorized
	}
	if err := utils.ValidateResourceId[models.Department](ctx, input.DepartmentId); err != nil {
		return nil, err
	}
	if input.SectionId != nil {
		if err := utils.ValidateResourceId[models.Section](ctx, *input.SectionId); err != nil {
			return nil, err
		}
	}
	if input.ToBeRetained && input.DestructionDate != nil {
		return nil, fmt.Errorf("%w: retained crates cannot carry a destruction date", models.ErrValidation)
	}
	if !input.ToBeRetained && input.DestructionDate == nil {
		return nil, fmt.Errorf("%w: destruction date is required unless the crate is retained", models.ErrValidation)
	}

	req := models.Request{
		RequestType:   models.RequestTypeStorage,
		Status:        models.RequestStatusPending,
		RequestedById: act.UserId,
		UnitId:        input.UnitId,
		DepartmentId:  input.DepartmentId,
		SectionId:     input.SectionId,
		ToCentral:     input.ToCentral,
		ToBeRetained:  input.ToBeRetained,
		Purpose:       input.Purpose,
	}
	if input.DestructionDate != nil {
		truncated := utils.TruncateToMonthStart(*input.DestructionDate)
		req.DestructionDate = &truncated
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.Create(&req).Error; err != nil {
		return nil, err
	}
	for _, docInput := range input.Documents {
		doc, err := models.GetOrCreateDocumentTx(tx, docInput)
		if err != nil {
			return nil, err
		}
		rd := models.RequestDocument{RequestId: req.ID, DocumentId: doc.ID}
		if err := tx.Create(&rd).Error; err != nil {
			return nil, err
		}
	}
	if err := emitRequestEvent(tx, models.AuditActionCreated, &req, nil, "Storage request submitted", ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// SubmitWithdrawalRequest creates a Pending withdrawal for a crate. At most
// one withdrawal or destruction request may be non-terminal per crate; the
// check happens inside the transaction so two concurrent submissions cannot
// both pass.
func SubmitWithdrawalRequest(ctx context.Context, input *NewWithdrawalRequest) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	if !act.Privileges[models.PrivilegeCreateRequest] {
		return nil, models.ErrUnauthorized
	}
	if !input.FullWithdrawal && len(input.DocumentIds) == 0 {
		return nil, fmt.Errorf("%w: a partial withdrawal must name at least one document", models.ErrValidation)
	}
	if input.FullWithdrawal && len(input.DocumentIds) > 0 {
		return nil, fmt.Errorf("%w: a full withdrawal does not take a document list", models.ErrValidation)
	}

	crate, err := models.GetCrate(ctx, input.CrateId)
	if err != nil {
		return nil, err
	}
	if crate.Status == models.CrateStatusDestroyed {
		return nil, models.ErrCrateDestroyed
	}
	if !models.UserBelongsToUnit(act.User, crate.UnitId) {
		return nil, models.ErrUnauthorized
	}
	if !input.FullWithdrawal {
		if err := utils.ValidateResourcesId[models.Document](ctx, input.DocumentIds); err != nil {
			return nil, err
		}
		if err := checkDocumentSubset(crate, input.DocumentIds); err != nil {
			return nil, err
		}
	}

	req := models.Request{
		RequestType:        models.RequestTypeWithdrawal,
		Status:             models.RequestStatusPending,
		RequestedById:      act.UserId,
		UnitId:             crate.UnitId,
		DepartmentId:       crate.DepartmentId,
		SectionId:          crate.SectionId,
		CrateId:            &crate.ID,
		Purpose:            input.Purpose,
		ExpectedReturnDate: input.ExpectedReturnDate,
		FullWithdrawal:     input.FullWithdrawal,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	// Serialize submissions per crate on the crate row, then count.
	locked, err := models.LockCrateTx(tx, crate.ID)
	if err != nil {
		return nil, err
	}
	if locked.Status == models.CrateStatusDestroyed {
		return nil, models.ErrCrateDestroyed
	}
	active, err := models.HasActiveRequestForCrateTx(tx, crate.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.ErrDuplicateActiveRequest
	}
	if err := tx.Create(&req).Error; err != nil {
		return nil, err
	}
	for _, docId := range utils.UniqueSlice(input.DocumentIds) {
		rd := models.RequestDocument{RequestId: req.ID, DocumentId: docId}
		if err := tx.Create(&rd).Error; err != nil {
			return nil, err
		}
	}
	if err := emitRequestEvent(tx, models.AuditActionCreated, &req, nil, "Withdrawal request submitted", ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// SubmitDestructionRequest creates a Pending destruction for an eligible
// crate: due on or before the end of the current month, not retained.
func SubmitDestructionRequest(ctx context.Context, input *NewDestructionRequest) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	if !act.Privileges[models.PrivilegeCreateRequest] {
		return nil, models.ErrUnauthorized
	}

	crate, err := models.GetCrate(ctx, input.CrateId)
	if err != nil {
		return nil, err
	}
	if crate.Status == models.CrateStatusDestroyed {
		return nil, models.ErrCrateDestroyed
	}
	if !models.UserBelongsToUnit(act.User, crate.UnitId) {
		return nil, models.ErrUnauthorized
	}
	if !crate.IsEligibleForDestruction(time.Now()) {
		return nil, models.ErrNotEligibleForDestruction
	}

	req := models.Request{
		RequestType:     models.RequestTypeDestruction,
		Status:          models.RequestStatusPending,
		RequestedById:   act.UserId,
		UnitId:          crate.UnitId,
		DepartmentId:    crate.DepartmentId,
		SectionId:       crate.SectionId,
		CrateId:         &crate.ID,
		DestructionDate: crate.DestructionDate,
		Purpose:         input.Purpose,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	locked, err := models.LockCrateTx(tx, crate.ID)
	if err != nil {
		return nil, err
	}
	if locked.Status == models.CrateStatusDestroyed {
		return nil, models.ErrCrateDestroyed
	}
	if !locked.IsEligibleForDestruction(time.Now()) {
		return nil, models.ErrNotEligibleForDestruction
	}
	active, err := models.HasActiveRequestForCrateTx(tx, crate.ID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.ErrDuplicateActiveRequest
	}
	if err := tx.Create(&req).Error; err != nil {
		return nil, err
	}
	if err := emitRequestEvent(tx, models.AuditActionCreated, &req, nil, "Destruction request submitted", ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// ApproveRequest moves a Pending request to Approved under the approver's
// signature. Approving a storage request materializes the crate and assigns
// its barcode in the same transaction; approving a full withdrawal snapshots
// the crate's current document set onto the request.
func ApproveRequest(ctx context.Context, requestId int, password string) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ActionApprove, req.RequestType, req.Status, act.Privileges, false); err != nil {
		return nil, err
	}
	if req.RequestedById == act.UserId {
		return nil, fmt.Errorf("%w: a request cannot be approved by its owner", models.ErrUnauthorized)
	}
	if err := ConfirmSignature(ctx, act.UserId, password); err != nil {
		return nil, err
	}

	now := time.Now()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	extra := map[string]interface{}{"approved_by_id": act.UserId}
	if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusPending, models.RequestStatusApproved, extra); err != nil {
		return nil, err
	}

	switch req.RequestType {
	case models.RequestTypeStorage:
		unit, err := models.GetUnit(ctx, req.UnitId)
		if err != nil {
			return nil, err
		}
		dept, err := models.GetDepartment(ctx, req.DepartmentId)
		if err != nil {
			return nil, err
		}
		sectionName := ""
		if req.SectionId != nil {
			section, err := models.GetSection(ctx, *req.SectionId)
			if err != nil {
				return nil, err
			}
			sectionName = section.SectionName
		}
		crate, err := models.CreateCrateTx(tx, req, unit.UnitCode, dept.DepartmentName, sectionName, now)
		if err != nil {
			return nil, err
		}
		if err := tx.Model(&models.Request{}).Where("id = ?", req.ID).
			Update("crate_id", crate.ID).Error; err != nil {
			return nil, err
		}
		req.CrateId = &crate.ID

	case models.RequestTypeWithdrawal:
		if req.FullWithdrawal {
			if err := snapshotCrateDocumentsTx(tx, req); err != nil {
				return nil, err
			}
		}
	}

	// Reload inside the transaction so the audit payload carries the
	// approved state, not the snapshot read before the guard.
	req, err = models.GetRequestTx(tx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := emitRequestEvent(tx, models.AuditActionApproved, req, req.CrateId, "Request approved", ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// RejectRequest is terminal. The approver may reject any Pending or Sent
// Back request; the owner may reject their own, which doubles as
// cancellation. The reason is mandatory and validated before the signature
// gate, like a send-back.
func RejectRequest(ctx context.Context, requestId int, reason, password string) (*models.Request, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", models.ErrValidation)
	}
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	isOwner := req.RequestedById == act.UserId
	if err := Authorize(ActionReject, req.RequestType, req.Status, act.Privileges, isOwner); err != nil {
		return nil, err
	}
	if err := ConfirmSignature(ctx, act.UserId, password); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := models.TransitionRequestTx(tx, req.ID, req.Status, models.RequestStatusRejected, nil); err != nil {
		return nil, err
	}
	if err := models.CreateSendBackTx(tx, req.ID, models.SendBackTypeRejection, reason, act.UserId); err != nil {
		return nil, err
	}
	if err := emitRequestEvent(tx, models.AuditActionRejected, req, req.CrateId, "Request rejected", reason); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// SendBackRequest pushes a Pending request back to its owner for rework. The
// reason is validated before the signature gate so a short reason never
// costs the approver a signature attempt.
func SendBackRequest(ctx context.Context, requestId int, sbType models.SendBackType, reason, password string) (*models.Request, error) {
	if len(reason) < minSendBackReasonLen {
		return nil, fmt.Errorf("%w: send-back reason must be at least %d characters", models.ErrValidation, minSendBackReasonLen)
	}
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ActionSendBack, req.RequestType, req.Status, act.Privileges, false); err != nil {
		return nil, err
	}
	if err := ConfirmSignature(ctx, act.UserId, password); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusPending, models.RequestStatusSentBack, nil); err != nil {
		return nil, err
	}
	if err := models.CreateSendBackTx(tx, req.ID, sbType, reason, act.UserId); err != nil {
		return nil, err
	}
	if err := emitRequestEvent(tx, models.AuditActionSentBack, req, req.CrateId, "Request sent back", reason); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

type UpdateRequestInput struct {
	DestructionDate    *time.Time            `json:"destruction_date"`
	ToCentral          *bool                 `json:"to_central"`
	ToBeRetained       *bool                 `json:"to_be_retained"`
	Purpose            *string               `json:"purpose"`
	ExpectedReturnDate *time.Time            `json:"expected_return_date"`
	Documents          []*models.NewDocument `json:"documents" binding:"omitempty,min=1,dive"`
	Resubmit           bool                  `json:"resubmit"`
}

// UpdateRequest lets the owner rework a Sent Back request and optionally
// resubmit it in the same call. Only the owner may edit; edits in any other
// status are invalid transitions.
func UpdateRequest(ctx context.Context, requestId int, input *UpdateRequestInput) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	isOwner := req.RequestedById == act.UserId
	if err := Authorize(ActionResubmit, req.RequestType, req.Status, act.Privileges, isOwner); err != nil {
		return nil, err
	}
	if !isOwner {
		return nil, models.ErrUnauthorized
	}

	updates := map[string]interface{}{}
	if req.RequestType == models.RequestTypeStorage &&
		(input.DestructionDate != nil || input.ToBeRetained != nil) {
		retained, date, err := resolveDestructionPolicy(req, input)
		if err != nil {
			return nil, err
		}
		updates["to_be_retained"] = retained
		updates["destruction_date"] = date
	}
	if input.ToCentral != nil {
		updates["to_central"] = *input.ToCentral
	}
	if input.Purpose != nil {
		updates["purpose"] = *input.Purpose
	}
	if input.ExpectedReturnDate != nil {
		updates["expected_return_date"] = *input.ExpectedReturnDate
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if len(updates) > 0 {
		if err := tx.Model(&models.Request{}).Where("id = ?", req.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if len(input.Documents) > 0 && req.RequestType == models.RequestTypeStorage {
		if err := tx.Where("request_id = ?", req.ID).Delete(&models.RequestDocument{}).Error; err != nil {
			return nil, err
		}
		for _, docInput := range input.Documents {
			doc, err := models.GetOrCreateDocumentTx(tx, docInput)
			if err != nil {
				return nil, err
			}
			rd := models.RequestDocument{RequestId: req.ID, DocumentId: doc.ID}
			if err := tx.Create(&rd).Error; err != nil {
				return nil, err
			}
		}
	}
	if input.Resubmit {
		if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusSentBack, models.RequestStatusPending, nil); err != nil {
			return nil, err
		}
	}
	if err := emitRequestEvent(tx, models.AuditActionUpdated, req, req.CrateId, "Request updated", ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// resolveDestructionPolicy merges a storage-request edit into the stored
// destruction policy. Flipping to retained clears any stored date; a
// retained request may never carry one, and a non-retained request must.
func resolveDestructionPolicy(req *models.Request, input *UpdateRequestInput) (bool, *time.Time, error) {
	retained := req.ToBeRetained
	if input.ToBeRetained != nil {
		retained = *input.ToBeRetained
	}
	date := req.DestructionDate
	if input.DestructionDate != nil {
		truncated := utils.TruncateToMonthStart(*input.DestructionDate)
		date = &truncated
	}
	if retained {
		if input.DestructionDate != nil {
			return false, nil, fmt.Errorf("%w: retained crates cannot carry a destruction date", models.ErrValidation)
		}
		date = nil
	} else if date == nil {
		return false, nil, fmt.Errorf("%w: destruction date is required unless the crate is retained", models.ErrValidation)
	}
	return retained, date, nil
}

// snapshotCrateDocumentsTx copies the crate's current document set onto a
// full-withdrawal request at approval time, so later crate changes do not
// alter what was approved for issue.
func snapshotCrateDocumentsTx(tx *gorm.DB, req *models.Request) error {
	if req.CrateId == nil {
		return models.ErrInvalidTransition
	}
	var crateDocs []*models.CrateDocument
	if err := tx.Where("crate_id = ?", *req.CrateId).Find(&crateDocs).Error; err != nil {
		return err
	}
	for _, cd := range crateDocs {
		rd := models.RequestDocument{RequestId: req.ID, DocumentId: cd.DocumentId}
		if err := tx.Create(&rd).Error; err != nil {
			return err
		}
	}
	return nil
}

func checkDocumentSubset(crate *models.Crate, documentIds []int) error {
	inCrate := make(map[int]bool, len(crate.Documents))
	for _, cd := range crate.Documents {
		inCrate[cd.DocumentId] = true
	}
	for _, id := range documentIds {
		if !inCrate[id] {
			return fmt.Errorf("%w: document %d is not in the crate", models.ErrValidation, id)
		}
	}
	return nil
}

// emitRequestEvent writes the audit row and the outbox row together inside
// the caller's transaction.
func emitRequestEvent(tx *gorm.DB, action models.AuditAction, req *models.Request, crateId *int, description, reason string) error {
	if err := models.EmitAuditTx(tx, action, req.ID, "requests", nil, req, description, reason); err != nil {
		return err
	}
	return models.QueueArchiveEventTx(tx, "request", action, &req.ID, crateId, nil, req, reason)
}
