package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// obtainCrateLock takes a best-effort Redis lock on the crate to keep two
// allocators from shelving it simultaneously. If Redis is down or the lock is
// held, the caller proceeds anyway; the guarded updates still serialize
// correctly, the lock just avoids wasted work.
func obtainCrateLock(ctx context.Context, crateId int) *redislock.Lock {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		logger.WithFields(logrus.Fields{
			"field":    "obtainCrateLock",
			"crate_id": crateId,
		}).Warn("redis lock not ready; proceeding without redis lock")
		return nil
	}
	lock, err := locker.Obtain(ctx, fmt.Sprintf("lock:crate:%d", crateId), 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		logger.WithFields(logrus.Fields{
			"field":    "obtainCrateLock",
			"crate_id": crateId,
		}).Warn("could not obtain redis lock; proceeding without redis lock")
		return nil
	} else if err != nil {
		logger.WithFields(logrus.Fields{
			"field":    "obtainCrateLock",
			"crate_id": crateId,
		}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return nil
	}
	return lock
}

func releaseCrateLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(ctx); err != nil {
		config.GetLogger().WithFields(logrus.Fields{
			"field": "releaseCrateLock",
		}).Warn("failed to release redis lock: " + err.Error())
	}
}

// AllocateStorage shelves the crate of an approved storage request. The
// location is resolved against the request's unit (shelf depth checked
// there), then the request completes and the crate's location is written in
// one transaction. Allocating an already-Completed request is an invalid
// transition, not an idempotent no-op.
func AllocateStorage(ctx context.Context, requestId int, location models.LocationInput, password string) (*models.Request, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	req, err := models.GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	if err := Authorize(ActionAllocate, req.RequestType, req.Status, act.Privileges, false); err != nil {
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

	lock := obtainCrateLock(ctx, *req.CrateId)
	defer releaseCrateLock(ctx, lock)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := models.TransitionRequestTx(tx, req.ID, models.RequestStatusApproved, models.RequestStatusCompleted, nil); err != nil {
		return nil, err
	}
	if err := models.AssignLocationTx(tx, *req.CrateId, storage.ID); err != nil {
		return nil, err
	}
	if err := models.EmitAuditTx(tx, models.AuditActionAllocated, *req.CrateId, "crates", nil, storage, "Crate shelved", ""); err != nil {
		return nil, err
	}
	if err := models.QueueArchiveEventTx(tx, "crate", models.AuditActionAllocated, &req.ID, req.CrateId, &storage.ID, storage, ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetRequest(ctx, req.ID)
}

// RelocateCrate moves a crate to a new location outside any request flow.
// Still signature-gated and audited; refused for destroyed crates.
func RelocateCrate(ctx context.Context, crateId int, location models.LocationInput, password string) (*models.Crate, error) {
	act, err := loadActor(ctx)
	if err != nil {
		return nil, err
	}
	if !act.Privileges[models.PrivilegeAllocateStorage] {
		return nil, models.ErrUnauthorized
	}
	crate, err := models.GetCrate(ctx, crateId)
	if err != nil {
		return nil, err
	}
	if crate.Status == models.CrateStatusDestroyed {
		return nil, models.ErrCrateDestroyed
	}

	location.UnitId = crate.UnitId
	storage, err := models.ResolveLocation(ctx, location)
	if err != nil {
		return nil, err
	}

	if err := ConfirmSignature(ctx, act.UserId, password); err != nil {
		return nil, err
	}

	lock := obtainCrateLock(ctx, crateId)
	defer releaseCrateLock(ctx, lock)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := models.AssignLocationTx(tx, crateId, storage.ID); err != nil {
		return nil, err
	}
	if err := models.EmitAuditTx(tx, models.AuditActionAllocated, crateId, "crates", crate.Storage, storage, "Crate relocated", ""); err != nil {
		return nil, err
	}
	if err := models.QueueArchiveEventTx(tx, "crate", models.AuditActionAllocated, nil, &crateId, &storage.ID, storage, ""); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return models.GetCrate(ctx, crateId)
}
