package service

import (
	"context"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/identity"
	"github.com/distro-app/gateway/internal/port"

	"go.uber.org/zap"
)

// Invitation status filters accepted by List.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusExpired  = "expired"
	InvitationStatusAccepted = "accepted"
)

// Invitations handles the staff invitation workflow: listing with status
// filters, resending, and redeeming a token into a live session.
type Invitations struct {
	api     port.DirectoryAPI
	manager *identity.Manager
	logger  *zap.Logger
	now     func() time.Time
}

// NewInvitations creates the invitation service.
func NewInvitations(api port.DirectoryAPI, manager *identity.Manager, logger *zap.Logger) *Invitations {
	return &Invitations{api: api, manager: manager, logger: logger, now: time.Now}
}

// List returns the caller's visible invitations, optionally filtered by
// status. Status is computed locally from acceptance and expiry so that the
// filter stays correct even when the backend omits a status field.
func (s *Invitations) List(ctx context.Context, accessToken, status string) ([]domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Invitations.List")
	defer span.End()

	invitations, err := s.api.ListInvitations(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return invitations, nil
	}

	now := s.now()
	filtered := make([]domain.Invitation, 0, len(invitations))
	for _, inv := range invitations {
		switch status {
		case InvitationStatusAccepted:
			if inv.IsAccepted {
				filtered = append(filtered, inv)
			}
		case InvitationStatusExpired:
			if !inv.IsAccepted && !inv.ExpiresOn.After(now) {
				filtered = append(filtered, inv)
			}
		case InvitationStatusPending:
			if inv.Valid(now) {
				filtered = append(filtered, inv)
			}
		default:
			return nil, &domain.ErrValidation{Field: "status", Message: "must be pending, expired or accepted"}
		}
	}
	return filtered, nil
}

// Resend re-issues an invitation. The returned expiry must be strictly later
// than now plus nothing less than a full window; a backend that echoes a
// lapsed expiry gets corrected locally so the caller never sees a resend
// that did not extend.
func (s *Invitations) Resend(ctx context.Context, accessToken, invitationID string) (*domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Invitations.Resend")
	defer span.End()

	if invitationID == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "required"}
	}

	inv, err := s.api.ResendInvitation(ctx, accessToken, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.IsAccepted {
		return nil, &domain.ErrInvitationInvalid{Reason: "invitation already accepted"}
	}

	now := s.now()
	if !inv.ExpiresOn.After(now) {
		inv.Extend(now)
	}

	s.logger.Info("invitation resent",
		zap.String("invitation_id", inv.ID),
		zap.Time("expires_on", inv.ExpiresOn),
	)
	return inv, nil
}

// Accept redeems an invitation token, creating the user upstream, and adopts
// the returned credential pair into a fresh authenticated session. Returns
// the session ID and the new identity.
func (s *Invitations) Accept(ctx context.Context, req *domain.AcceptInvitationRequest) (string, *domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Invitations.Accept")
	defer span.End()

	if req.Token == "" {
		return "", nil, &domain.ErrValidation{Field: "token", Message: "required"}
	}
	if req.Password == "" {
		return "", nil, &domain.ErrValidation{Field: "password", Message: "required"}
	}
	if req.FirstName == "" || req.LastName == "" {
		return "", nil, &domain.ErrValidation{Field: "name", Message: "first and last name required"}
	}

	creds, ident, err := s.api.AcceptInvitation(ctx, req)
	if err != nil {
		return "", nil, err
	}

	sid, err := s.manager.Adopt(creds, ident)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("invitation accepted",
		zap.String("user_id", ident.ID),
		zap.String("role", ident.Role),
	)
	return sid, ident, nil
}
