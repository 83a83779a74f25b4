package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/infra/resilience"
	"github.com/distro-app/gateway/internal/session"

	"go.uber.org/zap"
)

func newInvitations(api *stubAPI) *Invitations {
	manager := identity.NewManager(
		api,
		session.NewMemory(time.Minute),
		resilience.NewBulkhead(2),
		observability.NewMetrics(),
		zap.NewNop(),
		time.Hour, 24*time.Hour,
	)
	return NewInvitations(api, manager, zap.NewNop())
}

func TestList_FiltersByStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accepted := now.Add(-time.Hour)
	api := &stubAPI{
		listInvFn: func(ctx context.Context, token string) ([]domain.Invitation, error) {
			return []domain.Invitation{
				{ID: "a", ExpiresOn: now.Add(24 * time.Hour)},
				{ID: "b", ExpiresOn: now.Add(-time.Hour)},
				{ID: "c", IsAccepted: true, AcceptedOn: &accepted, ExpiresOn: now.Add(24 * time.Hour)},
			}, nil
		},
	}
	s := newInvitations(api)
	s.now = func() time.Time { return now }

	cases := map[string]string{
		InvitationStatusPending:  "a",
		InvitationStatusExpired:  "b",
		InvitationStatusAccepted: "c",
	}
	for status, wantID := range cases {
		got, err := s.List(context.Background(), "tok", status)
		if err != nil {
			t.Fatalf("List(%q): %v", status, err)
		}
		if len(got) != 1 || got[0].ID != wantID {
			t.Errorf("List(%q) = %+v, want single invitation %q", status, got, wantID)
		}
	}

	all, err := s.List(context.Background(), "tok", "")
	if err != nil {
		t.Fatalf("List(all): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered list returned %d invitations, want 3", len(all))
	}

	if _, err := s.List(context.Background(), "tok", "bogus"); err == nil {
		t.Error("expected validation error for unknown status")
	}
}

func TestResend_ExtendsLapsedExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	api := &stubAPI{
		resendFn: func(ctx context.Context, token, id string) (*domain.Invitation, error) {
			// Backend echoes the stale expiry instead of the extended one.
			return &domain.Invitation{ID: id, ExpiresOn: now.Add(-time.Hour)}, nil
		},
	}
	s := newInvitations(api)
	s.now = func() time.Time { return now }

	inv, err := s.Resend(context.Background(), "tok", "inv-1")
	if err != nil {
		t.Fatalf("Resend: %v", err)
	}
	if want := now.Add(domain.InvitationWindow); !inv.ExpiresOn.Equal(want) {
		t.Errorf("expiry not extended: got %v, want %v", inv.ExpiresOn, want)
	}
}

func TestResend_RejectsAcceptedInvitation(t *testing.T) {
	api := &stubAPI{
		resendFn: func(ctx context.Context, token, id string) (*domain.Invitation, error) {
			return &domain.Invitation{ID: id, IsAccepted: true}, nil
		},
	}

	_, err := newInvitations(api).Resend(context.Background(), "tok", "inv-1")
	var invalid *domain.ErrInvitationInvalid
	if !errors.As(err, &invalid) {
		t.Errorf("expected ErrInvitationInvalid, got %v", err)
	}
}

func TestAccept_AdoptsSession(t *testing.T) {
	api := &stubAPI{
		acceptFn: func(ctx context.Context, req *domain.AcceptInvitationRequest) (*domain.Credentials, *domain.Identity, error) {
			return &domain.Credentials{AccessToken: "acc", RefreshToken: "ref"},
				&domain.Identity{ID: "9", Role: domain.RoleFieldTech, Permissions: domain.DefaultPermissions(domain.RoleFieldTech)},
				nil
		},
	}
	s := newInvitations(api)

	sid, ident, err := s.Accept(context.Background(), &domain.AcceptInvitationRequest{
		Token:     "tok-1",
		Password:  "pw",
		FirstName: "Ana",
		LastName:  "Reyes",
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if sid == "" || ident.ID != "9" {
		t.Fatalf("unexpected result: sid=%q ident=%+v", sid, ident)
	}
	if !s.manager.HasPermission(sid, "view_assets") {
		t.Error("adopted session should be authenticated with the new identity")
	}
}

func TestAccept_ValidatesInput(t *testing.T) {
	s := newInvitations(&stubAPI{})

	_, _, err := s.Accept(context.Background(), &domain.AcceptInvitationRequest{Password: "pw", FirstName: "A", LastName: "B"})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) || verr.Field != "token" {
		t.Errorf("expected token validation error, got %v", err)
	}
}
