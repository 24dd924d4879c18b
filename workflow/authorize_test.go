package workflow

import (
	"errors"
	"testing"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
)

func TestAuthorize_LegalityTable(t *testing.T) {
	approver := map[string]bool{models.PrivilegeApproveRequest: true}
	requester := map[string]bool{models.PrivilegeCreateRequest: true}
	custodian := map[string]bool{models.PrivilegeAllocateStorage: true}
	nobody := map[string]bool{}

	cases := []struct {
		name       string
		action     Action
		reqType    models.RequestType
		status     models.RequestStatus
		privileges map[string]bool
		isOwner    bool
		wantErr    error
	}{
		{"approve pending", ActionApprove, models.RequestTypeStorage, models.RequestStatusPending, approver, false, nil},
		{"approve already approved", ActionApprove, models.RequestTypeStorage, models.RequestStatusApproved, approver, false, models.ErrInvalidTransition},
		{"approve rejected", ActionApprove, models.RequestTypeWithdrawal, models.RequestStatusRejected, approver, false, models.ErrInvalidTransition},
		{"approve without privilege", ActionApprove, models.RequestTypeStorage, models.RequestStatusPending, requester, false, models.ErrUnauthorized},
		{"owner cannot self-approve via ownership", ActionApprove, models.RequestTypeStorage, models.RequestStatusPending, nobody, true, models.ErrUnauthorized},

		{"approver rejects pending", ActionReject, models.RequestTypeDestruction, models.RequestStatusPending, approver, false, nil},
		{"approver rejects sent back", ActionReject, models.RequestTypeStorage, models.RequestStatusSentBack, approver, false, nil},
		{"owner cancels own pending", ActionReject, models.RequestTypeWithdrawal, models.RequestStatusPending, nobody, true, nil},
		{"stranger cannot reject", ActionReject, models.RequestTypeWithdrawal, models.RequestStatusPending, nobody, false, models.ErrUnauthorized},
		{"reject completed", ActionReject, models.RequestTypeStorage, models.RequestStatusCompleted, approver, false, models.ErrInvalidTransition},

		{"send back pending", ActionSendBack, models.RequestTypeStorage, models.RequestStatusPending, approver, false, nil},
		{"send back twice", ActionSendBack, models.RequestTypeStorage, models.RequestStatusSentBack, approver, false, models.ErrInvalidTransition},
		{"send back without privilege", ActionSendBack, models.RequestTypeStorage, models.RequestStatusPending, custodian, false, models.ErrUnauthorized},

		{"owner resubmits", ActionResubmit, models.RequestTypeStorage, models.RequestStatusSentBack, nobody, true, nil},
		{"resubmit pending", ActionResubmit, models.RequestTypeStorage, models.RequestStatusPending, requester, true, models.ErrInvalidTransition},

		{"allocate approved storage", ActionAllocate, models.RequestTypeStorage, models.RequestStatusApproved, custodian, false, nil},
		{"allocate withdrawal", ActionAllocate, models.RequestTypeWithdrawal, models.RequestStatusApproved, custodian, false, models.ErrInvalidTransition},
		{"allocate completed storage", ActionAllocate, models.RequestTypeStorage, models.RequestStatusCompleted, custodian, false, models.ErrInvalidTransition},
		{"allocate without privilege", ActionAllocate, models.RequestTypeStorage, models.RequestStatusApproved, approver, false, models.ErrUnauthorized},

		{"issue approved withdrawal", ActionIssue, models.RequestTypeWithdrawal, models.RequestStatusApproved, custodian, false, nil},
		{"issue storage", ActionIssue, models.RequestTypeStorage, models.RequestStatusApproved, custodian, false, models.ErrInvalidTransition},
		{"issue twice", ActionIssue, models.RequestTypeWithdrawal, models.RequestStatusIssued, custodian, false, models.ErrInvalidTransition},

		{"return issued withdrawal", ActionReturn, models.RequestTypeWithdrawal, models.RequestStatusIssued, custodian, false, nil},
		{"return before issue", ActionReturn, models.RequestTypeWithdrawal, models.RequestStatusApproved, custodian, false, models.ErrInvalidTransition},

		{"destroy approved destruction", ActionDestroy, models.RequestTypeDestruction, models.RequestStatusApproved, custodian, false, nil},
		{"destroy pending destruction", ActionDestroy, models.RequestTypeDestruction, models.RequestStatusPending, custodian, false, models.ErrInvalidTransition},
		{"destroy withdrawal", ActionDestroy, models.RequestTypeWithdrawal, models.RequestStatusApproved, custodian, false, models.ErrInvalidTransition},

		{"unknown action", Action("Frobnicate"), models.RequestTypeStorage, models.RequestStatusPending, approver, false, models.ErrInvalidTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.action, tc.reqType, tc.status, tc.privileges, tc.isOwner)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAuthorize_OwnerDoesNotBypassPrivilegedActions(t *testing.T) {
	// Ownership only matters for actions that admit it (reject/resubmit).
	for _, action := range []Action{ActionApprove, ActionSendBack, ActionAllocate, ActionIssue, ActionReturn, ActionDestroy} {
		status := models.RequestStatusPending
		reqType := models.RequestTypeStorage
		switch action {
		case ActionAllocate:
			status = models.RequestStatusApproved
		case ActionIssue:
			reqType, status = models.RequestTypeWithdrawal, models.RequestStatusApproved
		case ActionReturn:
			reqType, status = models.RequestTypeWithdrawal, models.RequestStatusIssued
		case ActionDestroy:
			reqType, status = models.RequestTypeDestruction, models.RequestStatusApproved
		}
		if err := Authorize(action, reqType, status, nil, true); !errors.Is(err, models.ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized for unprivileged owner, got %v", action, err)
		}
	}
}
