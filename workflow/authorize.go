package workflow

import (
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
)

// Action is a lifecycle operation a user can attempt on a request.
type Action string

const (
	ActionApprove  Action = "Approve"
	ActionReject   Action = "Reject"
	ActionSendBack Action = "SendBack"
	ActionResubmit Action = "Resubmit"
	ActionAllocate Action = "Allocate"
	ActionIssue    Action = "Issue"
	ActionReturn   Action = "Return"
	ActionDestroy  Action = "Destroy"
)

type actionRule struct {
	fromStatuses []models.RequestStatus
	requestTypes []models.RequestType
	privilege    string
	// ownerMayAct lets the requester perform the action on their own
	// request without the privilege (cancellation, resubmission).
	ownerMayAct bool
}

// actionRules is the full legality table: which statuses an action may start
// from, which request types it applies to, and the privilege it needs. The
// table is static data; evaluation never touches the database.
var actionRules = map[Action]actionRule{
	ActionApprove: {
		fromStatuses: []models.RequestStatus{models.RequestStatusPending},
		requestTypes: allRequestTypes,
		privilege:    models.PrivilegeApproveRequest,
	},
	ActionReject: {
		fromStatuses: []models.RequestStatus{models.RequestStatusPending, models.RequestStatusSentBack},
		requestTypes: allRequestTypes,
		privilege:    models.PrivilegeApproveRequest,
		ownerMayAct:  true,
	},
	ActionSendBack: {
		fromStatuses: []models.RequestStatus{models.RequestStatusPending},
		requestTypes: allRequestTypes,
		privilege:    models.PrivilegeApproveRequest,
	},
	ActionResubmit: {
		fromStatuses: []models.RequestStatus{models.RequestStatusSentBack},
		requestTypes: allRequestTypes,
		privilege:    models.PrivilegeCreateRequest,
		ownerMayAct:  true,
	},
	ActionAllocate: {
		fromStatuses: []models.RequestStatus{models.RequestStatusApproved},
		requestTypes: []models.RequestType{models.RequestTypeStorage},
		privilege:    models.PrivilegeAllocateStorage,
	},
	ActionIssue: {
		fromStatuses: []models.RequestStatus{models.RequestStatusApproved},
		requestTypes: []models.RequestType{models.RequestTypeWithdrawal},
		privilege:    models.PrivilegeAllocateStorage,
	},
	ActionReturn: {
		fromStatuses: []models.RequestStatus{models.RequestStatusIssued},
		requestTypes: []models.RequestType{models.RequestTypeWithdrawal},
		privilege:    models.PrivilegeAllocateStorage,
	},
	ActionDestroy: {
		fromStatuses: []models.RequestStatus{models.RequestStatusApproved},
		requestTypes: []models.RequestType{models.RequestTypeDestruction},
		privilege:    models.PrivilegeAllocateStorage,
	},
}

var allRequestTypes = []models.RequestType{
	models.RequestTypeStorage,
	models.RequestTypeWithdrawal,
	models.RequestTypeDestruction,
}

// Authorize checks a single action against the legality table. It returns
// ErrInvalidTransition when the action does not apply to the request's type
// or current status, and ErrUnauthorized when the status is right but the
// actor lacks the privilege (and is not an owner the action admits).
func Authorize(action Action, requestType models.RequestType, status models.RequestStatus,
	privileges map[string]bool, isOwner bool) error {

	rule, ok := actionRules[action]
	if !ok {
		return models.ErrInvalidTransition
	}
	if !containsType(rule.requestTypes, requestType) {
		return models.ErrInvalidTransition
	}
	if !containsStatus(rule.fromStatuses, status) {
		return models.ErrInvalidTransition
	}
	if rule.ownerMayAct && isOwner {
		return nil
	}
	if privileges[rule.privilege] {
		return nil
	}
	return models.ErrUnauthorized
}

func containsType(types []models.RequestType, t models.RequestType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}

func containsStatus(statuses []models.RequestStatus, s models.RequestStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}
