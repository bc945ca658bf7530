package domain_test

import (
	"testing"

	"github.com/lettercast/campaign-engine/internal/domain"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	all := []domain.Status{
		domain.StatusDraft,
		domain.StatusScheduled,
		domain.StatusSending,
		domain.StatusSent,
		domain.StatusArchived,
	}

	allowed := map[domain.Status][]domain.Status{
		domain.StatusDraft:     {domain.StatusScheduled, domain.StatusSending, domain.StatusArchived},
		domain.StatusScheduled: {domain.StatusSending, domain.StatusDraft},
		domain.StatusSending:   {domain.StatusSent},
		domain.StatusSent:      {domain.StatusArchived},
		domain.StatusArchived:  {},
	}

	for from, nexts := range allowed {
		ok := make(map[domain.Status]bool, len(nexts))
		for _, n := range nexts {
			ok[n] = true
		}
		for _, to := range all {
			got := from.CanTransitionTo(to)
			if got != ok[to] {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, ok[to])
			}
		}
	}
}

func TestStatus_NoReverseEdgeOutOfSending(t *testing.T) {
	// The only exit from sending is sent; in particular sent -> sending
	// must never be reachable.
	if domain.StatusSent.CanTransitionTo(domain.StatusSending) {
		t.Fatal("sent -> sending must not be a valid transition")
	}
	for _, to := range []domain.Status{domain.StatusDraft, domain.StatusScheduled, domain.StatusArchived} {
		if domain.StatusSending.CanTransitionTo(to) {
			t.Fatalf("sending -> %s must not be a valid transition", to)
		}
	}
}

func TestCreateCampaignRequest_Validate(t *testing.T) {
	valid := domain.CreateCampaignRequest{
		Subject: "March newsletter",
		Content: "<html><body><p>Hello</p></body></html>",
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("blank subject", func(t *testing.T) {
		r := valid
		r.Subject = "   "
		if err := r.Validate(); err != domain.ErrInvalidSubject {
			t.Fatalf("expected ErrInvalidSubject, got %v", err)
		}
	})

	t.Run("blank content", func(t *testing.T) {
		r := valid
		r.Content = ""
		if err := r.Validate(); err != domain.ErrInvalidContent {
			t.Fatalf("expected ErrInvalidContent, got %v", err)
		}
	})
}

func TestActionType_IsValid(t *testing.T) {
	if !domain.ActionOpen.IsValid() || !domain.ActionClick.IsValid() {
		t.Fatal("open and click must be valid actions")
	}
	if domain.ActionType("bounce").IsValid() {
		t.Fatal("bounce must not be a valid action")
	}
}
