package models

import (
	"context"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"gorm.io/gorm"
)

type Document struct {
	ID             int          `gorm:"primary_key" json:"id"`
	DocumentName   string       `gorm:"size:255;not null" json:"document_name" binding:"required"`
	DocumentNumber string       `gorm:"size:100;not null;unique" json:"document_number" binding:"required"`
	DocumentType   DocumentType `gorm:"type:enum('Physical','Digital');default:Physical" json:"document_type"`
	Description    string       `gorm:"type:text" json:"description"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDocument struct {
	DocumentName   string       `json:"document_name" binding:"required"`
	DocumentNumber string       `json:"document_number" binding:"required"`
	DocumentType   DocumentType `json:"document_type"`
	Description    string       `json:"description"`
}

// CrateDocument links a document to the crate holding it.
type CrateDocument struct {
	ID         int       `gorm:"primary_key" json:"id"`
	CrateId    int       `gorm:"not null;uniqueIndex:idx_crate_document" json:"crate_id"`
	DocumentId int       `gorm:"not null;uniqueIndex:idx_crate_document" json:"document_id"`
	Document   Document  `json:"document"`
	AddedAt    time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// RequestDocument links a document to a request: the proposed contents of a
// pending Storage request, or the subset of a Withdrawal.
type RequestDocument struct {
	ID         int       `gorm:"primary_key" json:"id"`
	RequestId  int       `gorm:"not null;uniqueIndex:idx_request_document" json:"request_id"`
	DocumentId int       `gorm:"not null;uniqueIndex:idx_request_document" json:"document_id"`
	Document   Document  `json:"document"`
	AddedAt    time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// GetOrCreateDocumentTx finds a document by number or creates it. Documents
// are shared by number across crates/requests, matching the registry the
// archive keeps per document number.
func GetOrCreateDocumentTx(tx *gorm.DB, input *NewDocument) (*Document, error) {
	var doc Document
	err := tx.Where("document_number = ?", input.DocumentNumber).First(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	docType := input.DocumentType
	if docType == "" {
		docType = DocumentTypePhysical
	}
	doc = Document{
		DocumentName:   input.DocumentName,
		DocumentNumber: input.DocumentNumber,
		DocumentType:   docType,
		Description:    input.Description,
	}
	if err := tx.Create(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListCrateDocuments returns the crate's documents. With excludeWithdrawn,
// documents currently out on an Issued withdrawal are filtered from the view.
func ListCrateDocuments(ctx context.Context, crateId int, excludeWithdrawn bool) ([]*CrateDocument, error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Preload("Document").Where("crate_id = ?", crateId)

	if excludeWithdrawn {
		q = q.Where(`document_id NOT IN (
			SELECT rd.document_id FROM request_documents rd
			JOIN requests r ON r.id = rd.request_id
			WHERE r.crate_id = ? AND r.request_type = ? AND r.status = ?
		)`, crateId, RequestTypeWithdrawal, RequestStatusIssued)
	}

	var docs []*CrateDocument
	if err := q.Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
