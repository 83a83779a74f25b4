package domain

import "time"

// InvitationWindow is the validity window granted at creation and on resend.
const InvitationWindow = 7 * 24 * time.Hour

// Invitation is a pending staff invitation owned by the backend. The gateway
// reads and forwards them but also computes status filters locally.
type Invitation struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	InvitedBy     string     `json:"invited_by,omitempty"`
	InvitedByName string     `json:"invited_by_name,omitempty"`
	Token         string     `json:"token,omitempty"`
	IsAccepted    bool       `json:"is_accepted"`
	AcceptedOn    *time.Time `json:"accepted_on,omitempty"`
	ExpiresOn     time.Time  `json:"expires_on"`
	CreatedOn     time.Time  `json:"created_on"`
}

// Valid reports whether the invitation can still be accepted.
func (inv *Invitation) Valid(now time.Time) bool {
	return !inv.IsAccepted && inv.ExpiresOn.After(now)
}

// Extend moves the expiry a full window past now. Resending an invitation
// always strictly increases its expiry, even when it had already lapsed.
func (inv *Invitation) Extend(now time.Time) {
	inv.ExpiresOn = now.Add(InvitationWindow)
}

// AcceptInvitationRequest is the payload for redeeming an invitation token.
type AcceptInvitationRequest struct {
	Token       string `json:"token"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}
