package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Crate struct {
	ID              int              `gorm:"primary_key" json:"id"`
	Barcode         string           `gorm:"size:100;not null;unique;index" json:"barcode"`
	DestructionDate *time.Time       `gorm:"index" json:"destruction_date"`
	CreationDate    time.Time        `gorm:"autoCreateTime" json:"creation_date"`
	CreatedById     int              `gorm:"not null" json:"created_by_id"`
	Status          CrateStatus      `gorm:"type:enum('Active','Withdrawn','Archived','Destroyed');default:Active;index" json:"status"`
	StorageId       *int             `json:"storage_id"`
	Storage         *StorageLocation `gorm:"foreignKey:StorageId" json:"storage"`
	UnitId          int              `gorm:"not null;index" json:"unit_id"`
	Unit            Unit             `json:"unit"`
	DepartmentId    int              `gorm:"not null" json:"department_id"`
	SectionId       *int             `json:"section_id"`
	ToCentral       bool             `gorm:"not null;default:false" json:"to_central"`
	ToBeRetained    bool             `gorm:"not null;default:false" json:"to_be_retained"`
	Documents       []*CrateDocument `gorm:"foreignKey:CrateId" json:"documents"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// BarcodeSequence is the server-side monotonic counter behind barcode
// generation, scoped to (unit, department, section, year). Rows are updated
// under a row lock inside the crate-creating transaction, so a sequence
// number is consumed exactly once and never reused, even after destruction.
type BarcodeSequence struct {
	ID           int       `gorm:"primary_key" json:"id"`
	UnitId       int       `gorm:"not null;uniqueIndex:idx_barcode_scope" json:"unit_id"`
	DepartmentId int       `gorm:"not null;uniqueIndex:idx_barcode_scope" json:"department_id"`
	SectionId    int       `gorm:"not null;uniqueIndex:idx_barcode_scope" json:"section_id"`
	Year         int       `gorm:"not null;uniqueIndex:idx_barcode_scope" json:"year"`
	LastSeq      int       `gorm:"not null;default:0" json:"last_seq"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FormatBarcode builds UNIT/DEPT[/SECTION]/YEAR/SEQ with a zero-padded
// 5-digit sequence.
func FormatBarcode(unitCode, deptName, sectionName string, year, seq int) string {
	dept := utils.CleanBarcodeSegment(deptName)
	section := utils.CleanBarcodeSegment(sectionName)
	if section != "" {
		return fmt.Sprintf("%s/%s/%s/%d/%05d", unitCode, dept, section, year, seq)
	}
	return fmt.Sprintf("%s/%s/%d/%05d", unitCode, dept, year, seq)
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// NextBarcodeSeqTx increments and returns the sequence for the scope. Must be
// called inside the transaction that creates the crate; the FOR UPDATE row
// lock serializes concurrent approvals on the same scope.
func NextBarcodeSeqTx(tx *gorm.DB, unitId, departmentId int, sectionId *int, year int) (int, error) {
	secId := 0
	if sectionId != nil {
		secId = *sectionId
	}

	var seq BarcodeSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("unit_id = ? AND department_id = ? AND section_id = ? AND year = ?",
			unitId, departmentId, secId, year).
		First(&seq).Error
	if err == gorm.ErrRecordNotFound {
		seq = BarcodeSequence{
			UnitId:       unitId,
			DepartmentId: departmentId,
			SectionId:    secId,
			Year:         year,
			LastSeq:      1,
		}
		createErr := tx.Create(&seq).Error
		if createErr == nil {
			return 1, nil
		}
		if !isDuplicateKeyErr(createErr) {
			return 0, createErr
		}
		// Lost the insert race for a fresh scope; the winner's row now
		// exists, so fall through to the locked read+increment path.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("unit_id = ? AND department_id = ? AND section_id = ? AND year = ?",
				unitId, departmentId, secId, year).
			First(&seq).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	seq.LastSeq++
	if err := tx.Model(&BarcodeSequence{}).Where("id = ?", seq.ID).
		Update("last_seq", seq.LastSeq).Error; err != nil {
		return 0, err
	}
	return seq.LastSeq, nil
}

// CreateCrateTx materializes a crate for an approved Storage request. The
// caller supplies the transaction so crate creation, barcode consumption and
// the request transition commit or roll back together.
func CreateCrateTx(tx *gorm.DB, req *Request, unitCode, deptName, sectionName string, now time.Time) (*Crate, error) {
	seq, err := NextBarcodeSeqTx(tx, req.UnitId, req.DepartmentId, req.SectionId, now.Year())
	if err != nil {
		return nil, err
	}

	crate := Crate{
		Barcode:         FormatBarcode(unitCode, deptName, sectionName, now.Year(), seq),
		DestructionDate: req.DestructionDate,
		CreatedById:     req.RequestedById,
		Status:          CrateStatusActive,
		UnitId:          req.UnitId,
		DepartmentId:    req.DepartmentId,
		SectionId:       req.SectionId,
		ToCentral:       req.ToCentral,
		ToBeRetained:    req.ToBeRetained,
	}
	if err := tx.Create(&crate).Error; err != nil {
		return nil, err
	}

	// Copy the request's proposed document set onto the crate. Immutable
	// from here on, apart from group removal on full withdrawal.
	var reqDocs []*RequestDocument
	if err := tx.Where("request_id = ?", req.ID).Find(&reqDocs).Error; err != nil {
		return nil, err
	}
	for _, rd := range reqDocs {
		cd := CrateDocument{CrateId: crate.ID, DocumentId: rd.DocumentId}
		if err := tx.Create(&cd).Error; err != nil {
			return nil, err
		}
	}
	return &crate, nil
}

// AssignLocationTx overwrites the crate's location. Legal whenever the crate
// is not destroyed; used by allocation and by direct relocation.
func AssignLocationTx(tx *gorm.DB, crateId int, storageId int) error {
	result := tx.Model(&Crate{}).
		Where("id = ? AND status != ?", crateId, CrateStatusDestroyed).
		Update("storage_id", storageId)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crateGuardError(tx, crateId)
	}
	return nil
}

// MarkWithdrawnTx flips an Active/Archived crate to Withdrawn.
func MarkWithdrawnTx(tx *gorm.DB, crateId int) error {
	result := tx.Model(&Crate{}).
		Where("id = ? AND status IN ?", crateId, []CrateStatus{CrateStatusActive, CrateStatusArchived}).
		Update("status", CrateStatusWithdrawn)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crateGuardError(tx, crateId)
	}
	return nil
}

// MarkReturnedTx restores a Withdrawn crate to Active at a new location.
func MarkReturnedTx(tx *gorm.DB, crateId int, storageId int) error {
	result := tx.Model(&Crate{}).
		Where("id = ? AND status = ?", crateId, CrateStatusWithdrawn).
		Updates(map[string]interface{}{
			"status":     CrateStatusActive,
			"storage_id": storageId,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crateGuardError(tx, crateId)
	}
	return nil
}

// MarkDestroyedTx is terminal. The storage row stays referenced for audit.
func MarkDestroyedTx(tx *gorm.DB, crateId int) error {
	result := tx.Model(&Crate{}).
		Where("id = ? AND status != ?", crateId, CrateStatusDestroyed).
		Update("status", CrateStatusDestroyed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return crateGuardError(tx, crateId)
	}
	return nil
}

// crateGuardError translates a zero-row guarded update into the right kind.
func crateGuardError(tx *gorm.DB, crateId int) error {
	var crate Crate
	if err := tx.Select("id", "status").Where("id = ?", crateId).First(&crate).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorRecordNotFound
		}
		return err
	}
	if crate.Status == CrateStatusDestroyed {
		return ErrCrateDestroyed
	}
	return ErrStaleState
}

// LockCrateTx reads the crate under a FOR UPDATE row lock. Submission
// transactions take this lock before counting active requests, so two
// concurrent submissions on the same crate serialize on the crate row
// instead of both passing a non-locking count.
func LockCrateTx(tx *gorm.DB, crateId int) (*Crate, error) {
	var crate Crate
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", crateId).First(&crate).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &crate, nil
}

// IsEligibleForDestruction: due on or before the last calendar day of the
// current month, not retained, not already destroyed.
func (c *Crate) IsEligibleForDestruction(now time.Time) bool {
	if c.ToBeRetained || c.DestructionDate == nil {
		return false
	}
	if c.Status == CrateStatusDestroyed {
		return false
	}
	return !c.DestructionDate.After(utils.EndOfCurrentMonth(now))
}

func GetCrate(ctx context.Context, id int) (*Crate, error) {
	db := config.GetDB()
	var crate Crate
	if err := db.WithContext(ctx).Preload("Storage").Preload("Unit").
		Preload("Documents.Document").Where("id = ?", id).First(&crate).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &crate, nil
}

type CrateFilter struct {
	Status  CrateStatus
	UnitId  int
	Barcode string
	Limit   int
	Offset  int
}

func ListCrates(ctx context.Context, filter CrateFilter) ([]*Crate, int64, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&Crate{})

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UnitId > 0 {
		q = q.Where("unit_id = ?", filter.UnitId)
	}
	if filter.Barcode != "" {
		q = q.Where("barcode LIKE ?", "%"+filter.Barcode+"%")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = config.SearchLimit
	}

	var crates []*Crate
	if err := q.Preload("Storage").Preload("Unit").
		Order("id DESC").Limit(limit).Offset(filter.Offset).
		Find(&crates).Error; err != nil {
		return nil, 0, err
	}
	return crates, count, nil
}
