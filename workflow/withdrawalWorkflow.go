package workflow

import (
	"context"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
)

// IssueDocuments hands the approved withdrawal's documents out of storage.
// The request moves Approved -> Issued and the crate is marked Withdrawn in
// the same transaction; its documents stop appearing in crate listings until
// the return.
func IssueDocuments(ctx context.Context, requestId int, password string) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ActionIssue, req.RequestType, req.Status, act.Privileges, false); err != nil {
		return nil, err
	}
	if req.CrateId == nil {
		return nil, models.ErrInvalidTransition
	}
	if err := ConfirmSignature(ctx, act.UserId, password); err != nil {
		return nil, err
	}

	now := time.Now()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	extra := map[string]interface{}{"issue_date": now}
	if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusApproved, models.RequestStatusIssued, extra); err != nil {
		return nil, err
	}
	if err := models.MarkWithdrawnTx(tx, *req.CrateId); err != nil {
		return nil, err
	}
	if err := emitRequestEvent(tx, models.AuditActionIssued, req, req.CrateId, "Documents issued", ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// ReturnDocuments closes the withdrawal loop in one atomic step: the request
// records its return date, the crate goes back to Active at the freshly
// resolved location, and the request completes. The location is resolved
// against the crate's unit before anything is written.
func ReturnDocuments(ctx context.Context, requestId int, location models.LocationInput, password string) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ActionReturn, req.RequestType, req.Status, act.Privileges, false); err != nil {
		return nil, err
	}
	if req.CrateId == nil {
		return nil, models.ErrInvalidTransition
	}

	location.UnitId = req.UnitId
	storage, err := models.ResolveLocation(ctx, location)
	if err != nil {
		return nil, err
	}

	if err := ConfirmSignature(ctx, act.UserId, password); err != nil {
		return nil, err
	}

	now := time.Now()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	extra := map[string]interface{}{"return_date": now}
	if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusIssued, models.RequestStatusReturned, extra); err != nil {
		return nil, err
	}
	if err := models.MarkReturnedTx(tx, *req.CrateId, storage.ID); err != nil {
		return nil, err
	}
	if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusReturned, models.RequestStatusCompleted, nil); err != nil {
		return nil, err
	}
	if err := emitRequestEvent(tx, models.AuditActionReturned, req, req.CrateId, "Documents returned", ""); err != nil {
		return nil, err
	}
	if err := models.EmitAuditTx(tx, models.AuditActionAllocated, *req.CrateId, "crates", nil, storage, "Crate re-shelved on return", ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}
