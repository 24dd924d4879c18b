package models

type RequestType string

const (
	RequestTypeStorage     RequestType = "Storage"
	RequestTypeWithdrawal  RequestType = "Withdrawal"
	RequestTypeDestruction RequestType = "Destruction"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "Pending"
	RequestStatusSentBack  RequestStatus = "Sent Back"
	RequestStatusApproved  RequestStatus = "Approved"
	RequestStatusIssued    RequestStatus = "Issued"
	RequestStatusReturned  RequestStatus = "Returned"
	RequestStatusRejected  RequestStatus = "Rejected"
	RequestStatusCompleted RequestStatus = "Completed"
)

// IsTerminal reports whether no further transition may leave this status.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusRejected || s == RequestStatusCompleted
}

type CrateStatus string

const (
	CrateStatusActive    CrateStatus = "Active"
	CrateStatusWithdrawn CrateStatus = "Withdrawn"
	CrateStatusArchived  CrateStatus = "Archived"
	CrateStatusDestroyed CrateStatus = "Destroyed"
)

type DocumentType string

const (
	DocumentTypePhysical DocumentType = "Physical"
	DocumentTypeDigital  DocumentType = "Digital"
)

type SendBackType string

const (
	SendBackTypeChangeRequest SendBackType = "Change Request"
	SendBackTypeReturnNote    SendBackType = "Return Note"
	SendBackTypeRejection     SendBackType = "Rejection"
)

type AuditAction string

const (
	AuditActionCreated   AuditAction = "Created"
	AuditActionUpdated   AuditAction = "Updated"
	AuditActionApproved  AuditAction = "Approved"
	AuditActionRejected  AuditAction = "Rejected"
	AuditActionSentBack  AuditAction = "Sent Back"
	AuditActionIssued    AuditAction = "Issued"
	AuditActionReturned  AuditAction = "Returned"
	AuditActionAllocated AuditAction = "Allocated"
	AuditActionDestroyed AuditAction = "Destroyed"
	AuditActionLogin     AuditAction = "Login"
	AuditActionLoginFail AuditAction = "LoginFailed"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "Active"
	UserStatusInactive  UserStatus = "Inactive"
	UserStatusSuspended UserStatus = "Suspended"
	UserStatusLocked    UserStatus = "Locked"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
