// Package gateway calls the Google Route Optimization API as the external
// optimization tier.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"routeopt/internal/apperror"
	"routeopt/internal/model"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

var ErrUnavailable = apperror.New(apperror.CodeGatewayUnavailable, "external optimizer not configured")

type Config struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
	Endpoint        string
	Timeout         time.Duration
	MaxPackages     int
	RatePerSecond   float64
	Burst           int
	// DayStart and DayEnd bound every shipment, in minutes since midnight UTC.
	DayStart int
	DayEnd   int
}

// Gateway is built once and shared; it holds no per-call state.
type Gateway struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

type Option func(*Gateway)

// WithHTTPClient bypasses Google credential discovery.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New builds a gateway. When the gateway is enabled and no client was
// injected, credentials come from CredentialsFile or Application Default
// Credentials. A credential error is returned alongside a gateway that
// reports itself unavailable.
func New(ctx context.Context, cfg Config, opts ...Option) (*Gateway, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://routeoptimization.googleapis.com"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxPackages <= 0 {
		cfg.MaxPackages = 100
	}
	if cfg.DayStart <= 0 {
		cfg.DayStart = 8 * 60
	}
	if cfg.DayEnd <= cfg.DayStart {
		cfg.DayEnd = 18 * 60
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	g := &Gateway{cfg: cfg, limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)), now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.client != nil || !cfg.Enabled || cfg.ProjectID == "" {
		return g, nil
	}

	ts, err := tokenSource(ctx, cfg.CredentialsFile)
	if err != nil {
		return g, apperror.Wrap(err, apperror.CodeGatewayUnavailable, "load google credentials")
	}
	g.client = oauth2.NewClient(context.WithoutCancel(ctx), ts)
	g.client.Timeout = cfg.Timeout
	return g, nil
}

func tokenSource(ctx context.Context, credentialsFile string) (oauth2.TokenSource, error) {
	if credentialsFile == "" {
		return google.DefaultTokenSource(ctx, cloudPlatformScope)
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	if err != nil {
		return nil, err
	}
	return creds.TokenSource, nil
}

// IsAvailable reports whether the gateway is enabled, has a project and has a client.
func (g *Gateway) IsAvailable() bool {
	return g != nil && g.cfg.Enabled && g.cfg.ProjectID != "" && g.client != nil
}

func (g *Gateway) MaxPackages() int { return g.cfg.MaxPackages }

// Optimize sends one optimizeTours request for the day containing planDate,
// or for today when planDate is zero. It does not retry.
func (g *Gateway) Optimize(ctx context.Context, pkgs []model.Package, depot model.Depot, planDate time.Time) (model.RouteResult, error) {
	if !g.IsAvailable() {
		return model.RouteResult{}, ErrUnavailable
	}
	if len(pkgs) > g.cfg.MaxPackages {
		return model.RouteResult{}, apperror.Newf(apperror.CodeGatewayCapped,
			"%d packages exceed the external optimizer cap of %d", len(pkgs), g.cfg.MaxPackages)
	}
	if len(pkgs) == 0 {
		return model.RouteResult{Stops: []model.RouteStop{}, StrategyUsed: model.StrategyExternal}, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return model.RouteResult{}, apperror.Wrap(err, apperror.CodeGatewayFailed, "rate limiter")
	}

	if planDate.IsZero() {
		planDate = g.now()
	}
	day := planDay(planDate)
	body := buildRequest(pkgs, depot, day, g.cfg)
	var resp optimizeToursResponse
	if err := g.post(ctx, g.url(), body, &resp); err != nil {
		return model.RouteResult{}, err
	}
	res, err := mapResponse(resp, pkgs, depot, day, g.cfg.DayStart)
	if err != nil {
		return model.RouteResult{}, apperror.Wrap(err, apperror.CodeGatewayFailed, "unusable optimizeTours response")
	}
	return res, nil
}

func (g *Gateway) url() string {
	return fmt.Sprintf("%s/v1/projects/%s:optimizeTours", g.cfg.Endpoint, g.cfg.ProjectID)
}

// planDay is midnight UTC of the day containing t.
func planDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
