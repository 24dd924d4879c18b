package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
)

func TestSendBackRequest_ShortReasonRejectedBeforeAnyGate(t *testing.T) {
	// The length check runs before actor loading and the signature gate, so
	// it needs no database and costs the approver nothing.
	_, err := SendBackRequest(context.Background(), 1, models.SendBackTypeChangeRequest, "too short", "pw")
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRejectRequest_EmptyReasonRejectedBeforeAnyGate(t *testing.T) {
	// Rejection doubles as cancellation and always carries a reason; the
	// check runs before actor loading and the signature gate.
	for _, reason := range []string{"", "   "} {
		_, err := RejectRequest(context.Background(), 1, reason, "pw")
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("reason %q: expected ErrValidation, got %v", reason, err)
		}
	}
}

func TestResolveDestructionPolicy(t *testing.T) {
	date := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)
	rawDate := time.Date(2026, time.December, 19, 10, 0, 0, 0, time.UTC)
	retained := true
	notRetained := false

	t.Run("flipping to retained clears the stored date", func(t *testing.T) {
		req := &models.Request{ToBeRetained: false, DestructionDate: &date}
		gotRetained, gotDate, err := resolveDestructionPolicy(req, &UpdateRequestInput{ToBeRetained: &retained})
		if err != nil {
			t.Fatalf("resolveDestructionPolicy: %v", err)
		}
		if !gotRetained || gotDate != nil {
			t.Fatalf("got retained=%v date=%v, want retained with no date", gotRetained, gotDate)
		}
	})

	t.Run("retained plus a supplied date is contradictory", func(t *testing.T) {
		req := &models.Request{ToBeRetained: false, DestructionDate: &date}
		_, _, err := resolveDestructionPolicy(req, &UpdateRequestInput{ToBeRetained: &retained, DestructionDate: &rawDate})
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("flipping retained off without a date is invalid", func(t *testing.T) {
		req := &models.Request{ToBeRetained: true}
		_, _, err := resolveDestructionPolicy(req, &UpdateRequestInput{ToBeRetained: &notRetained})
		if !errors.Is(err, models.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("supplied date is truncated to the month start", func(t *testing.T) {
		req := &models.Request{ToBeRetained: false, DestructionDate: &date}
		_, gotDate, err := resolveDestructionPolicy(req, &UpdateRequestInput{DestructionDate: &rawDate})
		if err != nil {
			t.Fatalf("resolveDestructionPolicy: %v", err)
		}
		if gotDate == nil || gotDate.Day() != 1 {
			t.Fatalf("got %v, want day-of-month 1", gotDate)
		}
	})
}

func TestCheckDocumentSubset(t *testing.T) {
	crate := &models.Crate{
		Documents: []*models.CrateDocument{
			{DocumentId: 1},
			{DocumentId: 2},
			{DocumentId: 3},
		},
	}

	if err := checkDocumentSubset(crate, []int{1, 3}); err != nil {
		t.Fatalf("valid subset rejected: %v", err)
	}
	if err := checkDocumentSubset(crate, nil); err != nil {
		t.Fatalf("empty subset should pass the subset check itself: %v", err)
	}
	err := checkDocumentSubset(crate, []int{2, 99})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrValidation for foreign document, got %v", err)
	}
}
