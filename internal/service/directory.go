// Package service contains the gateway's application services: directory
// views over the backend and invitation workflows.
package service

import (
	"context"
	"net/mail"
	"time"

	"github.com/distro-app/gateway/internal/domain"
	"github.com/distro-app/gateway/internal/infra/observability"
	"github.com/distro-app/gateway/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

// Directory serves roster, tenant and dashboard views over the backend API.
type Directory struct {
	api      port.DirectoryAPI
	summary  port.Cache[*domain.DashboardSummary]
	tenants  port.Cache[[]domain.Utility]
	metrics  *observability.Metrics
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewDirectory creates the directory service.
func NewDirectory(
	api port.DirectoryAPI,
	summary port.Cache[*domain.DashboardSummary],
	tenants port.Cache[[]domain.Utility],
	metrics *observability.Metrics,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *Directory {
	return &Directory{
		api:      api,
		summary:  summary,
		tenants:  tenants,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// ListUsers returns the roster visible to the caller.
func (d *Directory) ListUsers(ctx context.Context, accessToken string) ([]domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Directory.ListUsers")
	defer span.End()

	return d.api.ListUsers(ctx, accessToken)
}

// CreateUser validates and forwards a staff creation request.
func (d *Directory) CreateUser(ctx context.Context, accessToken string, user *domain.Identity) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Directory.CreateUser")
	defer span.End()

	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, &domain.ErrValidation{Field: "email", Message: "invalid email address"}
	}
	switch user.Role {
	case domain.RoleAdmin, domain.RoleSupervisor, domain.RoleFieldTech, domain.RoleCustomerService:
	default:
		return nil, &domain.ErrValidation{Field: "role", Message: "unknown role"}
	}

	return d.api.CreateUser(ctx, accessToken, user)
}

// ListTenants returns the registered utilities, cached briefly since the
// tenant directory changes rarely but backs every public-surface page.
func (d *Directory) ListTenants(ctx context.Context, accessToken string) ([]domain.Utility, error) {
	ctx, span := tracer.Start(ctx, "Directory.ListTenants")
	defer span.End()

	const key = "tenants"
	if cached, ok := d.tenants.Get(key); ok {
		d.metrics.IncrCacheHit("tenants")
		return cached, nil
	}
	d.metrics.IncrCacheMiss("tenants")

	tenants, err := d.api.ListTenants(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	d.tenants.SetWithTTL(key, tenants, d.cacheTTL)
	return tenants, nil
}

// DashboardSummary aggregates users, assets and zones into one response.
// The three collections are fetched concurrently; a failure of any one fails
// the whole summary. Results are cached per caller scope.
func (d *Directory) DashboardSummary(ctx context.Context, cacheKey, accessToken string) (*domain.DashboardSummary, error) {
	ctx, span := tracer.Start(ctx, "Directory.DashboardSummary")
	defer span.End()

	start := time.Now()
	defer func() { d.metrics.RecordRequestDuration("dashboard_summary", time.Since(start)) }()

	if cached, ok := d.summary.Get(cacheKey); ok {
		d.metrics.IncrCacheHit("dashboard")
		return cached, nil
	}
	d.metrics.IncrCacheMiss("dashboard")

	var (
		users  []domain.Identity
		assets []map[string]any
		zones  []map[string]any
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = d.api.ListUsers(gctx, accessToken)
		return err
	})
	g.Go(func() error {
		var err error
		assets, err = d.api.ListAssets(gctx, accessToken)
		return err
	})
	g.Go(func() error {
		var err error
		zones, err = d.api.ListZones(gctx, accessToken)
		return err
	})
	if err := g.Wait(); err != nil {
		d.logger.Warn("dashboard aggregation failed", zap.Error(err))
		return nil, err
	}

	summary := &domain.DashboardSummary{
		TotalUsers:  len(users),
		UsersByRole: make(map[string]int),
		TotalAssets: len(assets),
		TotalZones:  len(zones),
		GeneratedAt: time.Now().UTC(),
	}
	for i := range users {
		summary.UsersByRole[users[i].Role]++
		if users[i].IsActive {
			summary.ActiveUsers++
		}
	}

	d.summary.SetWithTTL(cacheKey, summary, d.cacheTTL)
	return summary, nil
}
