package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/distro-app/gateway/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// wireInvitation maps the backend's invitation serialization.
type wireInvitation struct {
	ID            flexID     `json:"id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	InvitedBy     flexID     `json:"invited_by"`
	InvitedByName string     `json:"invited_by_name"`
	Token         string     `json:"token"`
	IsAccepted    bool       `json:"is_accepted"`
	AcceptedOn    *time.Time `json:"accepted_on"`
	ExpiresOn     time.Time  `json:"expires_on"`
	CreatedOn     time.Time  `json:"created_on"`
}

func (w *wireInvitation) toDomain() domain.Invitation {
	return domain.Invitation{
		ID:            w.ID.String(),
		Email:         w.Email,
		Role:          w.Role,
		InvitedBy:     w.InvitedBy.String(),
		InvitedByName: w.InvitedByName,
		Token:         w.Token,
		IsAccepted:    w.IsAccepted,
		AcceptedOn:    w.AcceptedOn,
		ExpiresOn:     w.ExpiresOn,
		CreatedOn:     w.CreatedOn,
	}
}

// --- Invitations ---

// AcceptInvitation redeems an invitation token and returns the new user's
// credentials and identity, mirroring the login response.
func (c *Client) AcceptInvitation(ctx context.Context, req *domain.AcceptInvitationRequest) (*domain.Credentials, *domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Distro.AcceptInvitation")
	defer span.End()

	body, err := c.call(ctx, http.MethodPost, "/api/invitations/accept/", "", req, false)
	if err != nil {
		return nil, nil, err
	}

	var resp wireAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode accept response: %w", err)
	}
	return resp.toDomain()
}

// ListInvitations fetches the invitations visible to the caller.
func (c *Client) ListInvitations(ctx context.Context, accessToken string) ([]domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Distro.ListInvitations")
	defer span.End()

	body, err := c.call(ctx, http.MethodGet, "/api/invitations/", accessToken, nil, true)
	if err != nil {
		return nil, err
	}

	rows, err := decodeCollection[wireInvitation](body)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Invitation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// ResendInvitation re-issues an invitation, which resets its expiry upstream.
func (c *Client) ResendInvitation(ctx context.Context, accessToken, invitationID string) (*domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Distro.ResendInvitation")
	defer span.End()
	span.SetAttributes(attribute.String("invitation.id", invitationID))

	body, err := c.call(ctx, http.MethodPost, "/api/invitations/"+invitationID+"/resend/", accessToken, nil, false)
	if err != nil {
		return nil, err
	}

	var env struct {
		Data *wireInvitation `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		inv := env.Data.toDomain()
		return &inv, nil
	}
	var w wireInvitation
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode invitation: %w", err)
	}
	inv := w.toDomain()
	return &inv, nil
}

// --- Directory collections ---

// ListUsers fetches the staff roster visible to the caller. The backend
// scopes the result server-side (full roster vs own team).
func (c *Client) ListUsers(ctx context.Context, accessToken string) ([]domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Distro.ListUsers")
	defer span.End()

	body, err := c.call(ctx, http.MethodGet, "/api/users/", accessToken, nil, true)
	if err != nil {
		return nil, err
	}

	rows, err := decodeCollection[wireUser](body)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Identity, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

// CreateUser creates a staff user directly (as opposed to inviting one).
func (c *Client) CreateUser(ctx context.Context, accessToken string, user *domain.Identity) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Distro.CreateUser")
	defer span.End()

	body, err := c.call(ctx, http.MethodPost, "/api/users/", accessToken, user, false)
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

// ListAssets fetches infrastructure assets. The gateway treats them as
// opaque documents; only the dashboard aggregation counts them.
func (c *Client) ListAssets(ctx context.Context, accessToken string) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Distro.ListAssets")
	defer span.End()

	body, err := c.call(ctx, http.MethodGet, "/api/assets/", accessToken, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeCollection[map[string]any](body)
}

// ListZones fetches service zones, also as opaque documents.
func (c *Client) ListZones(ctx context.Context, accessToken string) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Distro.ListZones")
	defer span.End()

	body, err := c.call(ctx, http.MethodGet, "/api/zones/", accessToken, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeCollection[map[string]any](body)
}

// wireTenant maps the backend's utility (tenant) serialization.
type wireTenant struct {
	ID           flexID `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Domain       string `json:"domain"`
	IsActive     bool   `json:"is_active"`
}

// ListTenants fetches the registered utilities.
func (c *Client) ListTenants(ctx context.Context, accessToken string) ([]domain.Utility, error) {
	ctx, span := tracer.Start(ctx, "Distro.ListTenants")
	defer span.End()

	body, err := c.call(ctx, http.MethodGet, "/api/tenants/", accessToken, nil, true)
	if err != nil {
		return nil, err
	}

	rows, err := decodeCollection[wireTenant](body)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Utility, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Utility{
			ID:           r.ID.Int64(),
			Name:         r.Name,
			Description:  r.Description,
			ContactEmail: r.ContactEmail,
			ContactPhone: r.ContactPhone,
			Domain:       r.Domain,
			IsActive:     r.IsActive,
		})
	}
	return out, nil
}
