// Package client implements the DirectoryAPI port against the distro
// backend's REST API. All calls go through a circuit breaker; idempotent
// reads additionally retry with backoff. Credential-bearing calls are never
// retried, so an auth failure surfaces exactly once with the server's
// message intact.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("distro-client")

// Client wraps HTTP calls to the distro backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a backend client. baseURL has no trailing slash.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// call executes one request through the circuit breaker. When retry is true
// the request is re-issued with backoff on transport and 5xx failures.
// 4xx responses become domain errors and deliberately do not count as
// breaker failures: a rejected password is not an unhealthy backend.
func (c *Client) call(ctx context.Context, method, path, bearer string, payload any, retry bool) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	var respBody []byte
	var apiErr error

	attempt := func() error {
		url := c.baseURL + path
		var rdr io.Reader
		if reqBody != nil {
			rdr = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rdr)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("distro: request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Error(err),
			)
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode >= 500:
			c.logger.Warn("distro: server error",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
			)
			return fmt.Errorf("distro returned status %d: %s", resp.StatusCode, string(body))
		case resp.StatusCode >= 400:
			apiErr = errorFromStatus(resp.StatusCode, path, body)
			return nil
		}

		c.logger.Debug("distro: request OK",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		respBody = body
		return nil
	}

	_, err := c.cb.Execute(func() (any, error) {
		if retry {
			return nil, resilience.RetryWithBackoff(ctx, c.cfg, attempt)
		}
		return nil, attempt()
	})

	if err != nil {
		c.metrics.IncrUpstreamError(path)
		switch {
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, &domain.ErrCircuitOpen{Service: "distro"}
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &domain.ErrTimeout{Operation: method + " " + path}
		default:
			return nil, &domain.ErrExternalService{Service: "distro" + path, Err: err}
		}
	}
	if apiErr != nil {
		return nil, apiErr
	}
	return respBody, nil
}

// errorFromStatus maps a 4xx response to a domain error, preserving the
// server's own message where one exists.
func errorFromStatus(status int, path string, body []byte) error {
	msg := extractMessage(body)
	switch status {
	case http.StatusUnauthorized:
		return &domain.ErrUnauthorized{Message: msg}
	case http.StatusForbidden:
		return &domain.ErrForbidden{Action: msg}
	case http.StatusNotFound:
		return &domain.ErrNotFound{Resource: "resource", ID: path}
	case http.StatusConflict:
		return &domain.ErrConflict{Message: msg}
	default:
		if strings.Contains(path, "/invitations/") && status == http.StatusBadRequest {
			return &domain.ErrInvitationInvalid{Reason: msg}
		}
		return &domain.ErrValidation{Field: "request", Message: msg}
	}
}

// extractMessage digs the human-readable message out of the backend's
// assorted error payload shapes.
func extractMessage(body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, m := range []string{envelope.Error, envelope.Detail, envelope.Message} {
			if m != "" {
				return m
			}
		}
	}
	// DRF field errors arrive as {"field": ["msg", ...]}.
	var fields map[string][]string
	if err := json.Unmarshal(body, &fields); err == nil {
		for field, msgs := range fields {
			if len(msgs) > 0 {
				return field + ": " + msgs[0]
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// --- Wire types ---

// wireUser maps the backend's user serialization.
type wireUser struct {
	ID                      flexID     `json:"id"`
	Email                   string     `json:"email"`
	FirstName               string     `json:"first_name"`
	LastName                string     `json:"last_name"`
	FullName                string     `json:"full_name"`
	EmployeeID              string     `json:"employee_id"`
	PhoneNumber             string     `json:"phone_number"`
	Role                    string     `json:"role"`
	Permissions             []string   `json:"permissions"`
	Avatar                  string     `json:"avatar"`
	LocationTrackingConsent bool       `json:"location_tracking_consent"`
	LastActive              *time.Time `json:"last_active"`
	IsActive                bool       `json:"is_active"`
}

func (u *wireUser) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:                      u.ID.String(),
		Email:                   u.Email,
		FirstName:               u.FirstName,
		LastName:                u.LastName,
		FullName:                u.FullName,
		EmployeeID:              u.EmployeeID,
		PhoneNumber:             u.PhoneNumber,
		Role:                    u.Role,
		Permissions:             u.Permissions,
		Avatar:                  u.Avatar,
		LocationTrackingConsent: u.LocationTrackingConsent,
		LastActive:              u.LastActive,
		IsActive:                u.IsActive,
	}
}

// wireAuthResponse is the login / invitation-accept success envelope.
type wireAuthResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Tokens  struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
	User *wireUser `json:"user"`
}

func (a *wireAuthResponse) toDomain() (*domain.Credentials, *domain.Identity, error) {
	if a.User == nil || a.Tokens.Access == "" {
		return nil, nil, &domain.ErrExternalService{
			Service: "distro/auth",
			Err:     errors.New("incomplete auth response"),
		}
	}
	creds := &domain.Credentials{
		AccessToken:  a.Tokens.Access,
		RefreshToken: a.Tokens.Refresh,
	}
	return creds, a.User.toDomain(), nil
}

// --- Auth ---

// Login exchanges email and password for a token pair and identity snapshot.
// Never retried: a failed attempt must surface immediately and verbatim.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Credentials, *domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Distro.Login")
	defer span.End()
	span.SetAttributes(attribute.String("user.email", email))

	body, err := c.call(ctx, http.MethodPost, "/api/auth/login/", "",
		map[string]string{"email": email, "password": password}, false)
	if err != nil {
		return nil, nil, err
	}

	var resp wireAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("decode login response: %w", err)
	}
	return resp.toDomain()
}

// Logout revokes the refresh token upstream.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := tracer.Start(ctx, "Distro.Logout")
	defer span.End()

	_, err := c.call(ctx, http.MethodPost, "/api/auth/logout/", "",
		map[string]string{"refresh": refreshToken}, false)
	return err
}

// --- Profile ---

// profileEnvelope is the {"success": true, "data": {...}} wrapper some
// profile endpoints use; others return the user object bare.
type profileEnvelope struct {
	Data *wireUser `json:"data"`
}

func decodeUser(body []byte) (*domain.Identity, error) {
	var env profileEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		return env.Data.toDomain(), nil
	}
	var u wireUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return u.toDomain(), nil
}

// FetchProfile retrieves the caller's identity snapshot.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Distro.FetchProfile")
	defer span.End()

	body, err := c.call(ctx, http.MethodGet, "/api/users/profile/", accessToken, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

// UpdateProfile patches the caller's own profile and returns the fresh
// snapshot the backend sends back.
func (c *Client) UpdateProfile(ctx context.Context, accessToken string, update *domain.ProfileUpdate) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Distro.UpdateProfile")
	defer span.End()

	body, err := c.call(ctx, http.MethodPatch, "/api/users/profile/", accessToken, update, false)
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

// UpdateLocation reports a field technician's position.
func (c *Client) UpdateLocation(ctx context.Context, accessToken string, loc domain.Location) error {
	ctx, span := tracer.Start(ctx, "Distro.UpdateLocation")
	defer span.End()

	_, err := c.call(ctx, http.MethodPost, "/api/users/update_location/", accessToken, loc, false)
	return err
}
