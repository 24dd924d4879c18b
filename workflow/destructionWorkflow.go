package workflow

import (
	"context"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
)

// ExecuteDestruction carries out an approved destruction. Eligibility is
// re-checked at execution time: a destruction approved last month may have
// drifted out of its window if the crate's date was pushed forward since.
// The crate transition is terminal; the request completes in the same
// transaction.
func ExecuteDestruction(ctx context.Context, requestId int, password string) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ActionDestroy, req.RequestType, req.Status, act.Privileges, false); err != nil {
		return nil, err
	}
	if req.CrateId == nil {
		return nil, models.ErrInvalidTransition
	}
	crate, err := models.GetCrate(ctx, *req.CrateId)
	if err != nil {
		return nil, err
	}
	if !crate.IsEligibleForDestruction(time.Now()) {
		return nil, models.ErrNotEligibleForDestruction
	}
	if err := ConfirmSignature(ctx, act.UserId, password); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusApproved, models.RequestStatusCompleted, nil); err != nil {
		return nil, err
	}
	if err := models.MarkDestroyedTx(tx, crate.ID); err != nil {
		return nil, err
	}
	if err := emitRequestEvent(tx, models.AuditActionDestroyed, req, &crate.ID, "Crate destroyed", req.Purpose); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}
