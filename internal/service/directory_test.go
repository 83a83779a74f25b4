package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/infra/cache"
	"github.com/distro-app/gateway/internal/infra/observability"

	"go.uber.org/zap"
)

// stubAPI is a hand-rolled DirectoryAPI test double. Unset functions return
// zero values.
type stubAPI struct {
	loginFn       func(ctx context.Context, email, password string) (*domain.Credentials, *domain.Identity, error)
	logoutFn      func(ctx context.Context, refreshToken string) error
	fetchFn       func(ctx context.Context, accessToken string) (*domain.Identity, error)
	listUsersFn   func(ctx context.Context, accessToken string) ([]domain.Identity, error)
	createUserFn  func(ctx context.Context, accessToken string, user *domain.Identity) (*domain.Identity, error)
	listAssetsFn  func(ctx context.Context, accessToken string) ([]map[string]any, error)
	listZonesFn   func(ctx context.Context, accessToken string) ([]map[string]any, error)
	listTenantsFn func(ctx context.Context, accessToken string) ([]domain.Utility, error)
	acceptFn      func(ctx context.Context, req *domain.AcceptInvitationRequest) (*domain.Credentials, *domain.Identity, error)
	listInvFn     func(ctx context.Context, accessToken string) ([]domain.Invitation, error)
	resendFn      func(ctx context.Context, accessToken, invitationID string) (*domain.Invitation, error)
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (*domain.Credentials, *domain.Identity, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, email, password)
	}
	return nil, nil, nil
}

func (s *stubAPI) Logout(ctx context.Context, refreshToken string) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx, refreshToken)
	}
	return nil
}

func (s *stubAPI) FetchProfile(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if s.fetchFn != nil {
		return s.fetchFn(ctx, accessToken)
	}
	return nil, nil
}

func (s *stubAPI) UpdateProfile(ctx context.Context, accessToken string, update *domain.ProfileUpdate) (*domain.Identity, error) {
	return nil, nil
}

func (s *stubAPI) UpdateLocation(ctx context.Context, accessToken string, loc domain.Location) error {
	return nil
}

func (s *stubAPI) AcceptInvitation(ctx context.Context, req *domain.AcceptInvitationRequest) (*domain.Credentials, *domain.Identity, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, req)
	}
	return nil, nil, nil
}

func (s *stubAPI) ListInvitations(ctx context.Context, accessToken string) ([]domain.Invitation, error) {
	if s.listInvFn != nil {
		return s.listInvFn(ctx, accessToken)
	}
	return nil, nil
}

func (s *stubAPI) ResendInvitation(ctx context.Context, accessToken, invitationID string) (*domain.Invitation, error) {
	if s.resendFn != nil {
		return s.resendFn(ctx, accessToken, invitationID)
	}
	return nil, nil
}

func (s *stubAPI) ListUsers(ctx context.Context, accessToken string) ([]domain.Identity, error) {
	if s.listUsersFn != nil {
		return s.listUsersFn(ctx, accessToken)
	}
	return nil, nil
}

func (s *stubAPI) CreateUser(ctx context.Context, accessToken string, user *domain.Identity) (*domain.Identity, error) {
	if s.createUserFn != nil {
		return s.createUserFn(ctx, accessToken, user)
	}
	return user, nil
}

func (s *stubAPI) ListAssets(ctx context.Context, accessToken string) ([]map[string]any, error) {
	if s.listAssetsFn != nil {
		return s.listAssetsFn(ctx, accessToken)
	}
	return nil, nil
}

func (s *stubAPI) ListZones(ctx context.Context, accessToken string) ([]map[string]any, error) {
	if s.listZonesFn != nil {
		return s.listZonesFn(ctx, accessToken)
	}
	return nil, nil
}

func (s *stubAPI) ListTenants(ctx context.Context, accessToken string) ([]domain.Utility, error) {
	if s.listTenantsFn != nil {
		return s.listTenantsFn(ctx, accessToken)
	}
	return nil, nil
}

func newDirectory(api *stubAPI) *Directory {
	return NewDirectory(
		api,
		cache.New[*domain.DashboardSummary](time.Minute),
		cache.New[[]domain.Utility](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
		time.Minute,
	)
}

func TestDashboardSummary_Aggregates(t *testing.T) {
	api := &stubAPI{
		listUsersFn: func(ctx context.Context, token string) ([]domain.Identity, error) {
			return []domain.Identity{
				{ID: "1", Role: domain.RoleAdmin, IsActive: true},
				{ID: "2", Role: domain.RoleFieldTech, IsActive: true},
				{ID: "3", Role: domain.RoleFieldTech, IsActive: false},
			}, nil
		},
		listAssetsFn: func(ctx context.Context, token string) ([]map[string]any, error) {
			return []map[string]any{{"id": 1}, {"id": 2}}, nil
		},
		listZonesFn: func(ctx context.Context, token string) ([]map[string]any, error) {
			return []map[string]any{{"id": 1}}, nil
		},
	}

	summary, err := newDirectory(api).DashboardSummary(context.Background(), "k", "tok")
	if err != nil {
		t.Fatalf("DashboardSummary returned error: %v", err)
	}
	if summary.TotalUsers != 3 || summary.ActiveUsers != 2 {
		t.Errorf("user counts wrong: %+v", summary)
	}
	if summary.UsersByRole[domain.RoleFieldTech] != 2 {
		t.Errorf("role breakdown wrong: %+v", summary.UsersByRole)
	}
	if summary.TotalAssets != 2 || summary.TotalZones != 1 {
		t.Errorf("asset/zone counts wrong: %+v", summary)
	}
}

func TestDashboardSummary_CachesResult(t *testing.T) {
	var calls atomic.Int32
	api := &stubAPI{
		listUsersFn: func(ctx context.Context, token string) ([]domain.Identity, error) {
			calls.Add(1)
			return nil, nil
		},
	}
	d := newDirectory(api)

	if _, err := d.DashboardSummary(context.Background(), "k", "tok"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := d.DashboardSummary(context.Background(), "k", "tok"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected one upstream fetch, got %d", n)
	}
}

func TestDashboardSummary_FailsWhenAnyFetchFails(t *testing.T) {
	api := &stubAPI{
		listZonesFn: func(ctx context.Context, token string) ([]map[string]any, error) {
			return nil, errors.New("zones unavailable")
		},
	}

	if _, err := newDirectory(api).DashboardSummary(context.Background(), "k", "tok"); err == nil {
		t.Fatal("expected aggregation error, got nil")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	d := newDirectory(&stubAPI{})

	_, err := d.CreateUser(context.Background(), "tok", &domain.Identity{Email: "not-an-email", Role: domain.RoleAdmin})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Errorf("expected email validation error, got %v", err)
	}

	_, err = d.CreateUser(context.Background(), "tok", &domain.Identity{Email: "a@b.io", Role: "janitor"})
	if !errors.As(err, &verr) || verr.Field != "role" {
		t.Errorf("expected role validation error, got %v", err)
	}
}

func TestListTenants_Cached(t *testing.T) {
	var calls atomic.Int32
	api := &stubAPI{
		listTenantsFn: func(ctx context.Context, token string) ([]domain.Utility, error) {
			calls.Add(1)
			return []domain.Utility{{ID: 1, Name: "Aqua Norte"}}, nil
		},
	}
	d := newDirectory(api)

	for i := 0; i < 2; i++ {
		tenants, err := d.ListTenants(context.Background(), "tok")
		if err != nil {
			t.Fatalf("ListTenants: %v", err)
		}
		if len(tenants) != 1 {
			t.Fatalf("unexpected tenants: %+v", tenants)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected one upstream fetch, got %d", n)
	}
}
