package planner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeopt/internal/apperror"
	"routeopt/internal/cache"
	"routeopt/internal/hybrid"
	"routeopt/internal/logger"
	"routeopt/internal/model"
	"routeopt/internal/opt"
	"routeopt/internal/store"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

func f(v float64) *float64 { return &v }

func in(id string, lat, lng float64, typ string) model.PackageIn {
	return model.PackageIn{ID: id, Latitude: f(lat), Longitude: f(lng), DeliveryType: typ}
}

func nearby(n int) []model.PackageIn {
	out := make([]model.PackageIn, n)
	for i := range out {
		out[i] = in(fmt.Sprintf("p%d", i), 41.0+float64(i)*0.003, 29.0+float64(i%2)*0.003, "standard")
	}
	return out
}

type recorder struct {
	mu   sync.Mutex
	recs []model.RouteRecord
}

func (r *recorder) PublishRoute(_ context.Context, tenant string, rec model.RouteRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
}

func newPlanner(opts ...Option) *Planner {
	solver := opt.NewSolver(opt.SolverOptions{TimeBudget: 2 * time.Second, StallIterations: 10})
	sel := hybrid.New(nil, solver, opt.DefaultHeuristic(), hybrid.DefaultOptions())
	base := []Option{WithDepot(model.Depot{Location: model.Coordinate{Lat: 41.0, Lng: 29.0}, Label: "hub"})}
	return New(sel, append(base, opts...)...)
}

func TestNormalize(t *testing.T) {
	pkgs, excluded, warnings := Normalize([]model.PackageIn{
		in(" a ", 41.0, 29.0, "EXPRESS"),
		{ID: "nocoord", DeliveryType: "standard"},
		in("far", 95.0, 29.0, "standard"),
		{ExternalRef: "REF-9", Latitude: f(41.01), Longitude: f(29.01), DeliveryType: "scheduled",
			TimeWindow: &model.TimeWindowIn{Start: "10:00", End: "11:00"}},
		in("", 41.02, 29.02, "overnight"),
		{ID: "bad-window", Latitude: f(41.03), Longitude: f(29.03), DeliveryType: "scheduled",
			TimeWindow: &model.TimeWindowIn{Start: "12:00", End: "11:00"}},
		{ID: "std-window", Latitude: f(41.04), Longitude: f(29.04), DeliveryType: "standard",
			TimeWindow: &model.TimeWindowIn{Start: "09:00", End: "10:00"}},
		{ID: "junk-window", Latitude: f(41.05), Longitude: f(29.05), DeliveryType: "scheduled",
			TimeWindow: &model.TimeWindowIn{Start: "09:30xyz", End: "+11:-0"}},
	})

	require.Len(t, pkgs, 6)
	assert.Equal(t, "a", pkgs[0].ID)
	assert.Equal(t, model.Express, pkgs[0].Type)

	assert.Equal(t, "REF-9", pkgs[1].ID)
	require.NotNil(t, pkgs[1].Window)
	assert.Equal(t, model.TimeWindow{Start: 600, End: 660}, *pkgs[1].Window)

	assert.Equal(t, "pkg-5", pkgs[2].ID)
	assert.Equal(t, model.Standard, pkgs[2].Type)

	assert.Equal(t, "bad-window", pkgs[3].ID)
	assert.Nil(t, pkgs[3].Window)
	assert.Nil(t, pkgs[4].Window)
	assert.Equal(t, "junk-window", pkgs[5].ID)
	assert.Equal(t, model.Scheduled, pkgs[5].Type)
	assert.Nil(t, pkgs[5].Window)

	assert.Equal(t, []model.ExcludedPackage{
		{ID: "nocoord", Reason: "missing coordinate"},
		{ID: "far", Reason: "invalid coordinate (95, 29)"},
	}, excluded)
	assert.Len(t, warnings, 3)
}

func TestResolveDepot(t *testing.T) {
	def := model.DefaultDepot()
	d, err := ResolveDepot(nil, def)
	require.NoError(t, err)
	assert.Equal(t, def, d)

	d, err = ResolveDepot(&model.DepotIn{Latitude: 40.99, Longitude: 29.02}, def)
	require.NoError(t, err)
	assert.Equal(t, def.Label, d.Label)

	_, err = ResolveDepot(&model.DepotIn{Latitude: 0, Longitude: 200}, def)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidCoordinate))
}

func TestPlanRejectsAllInvalid(t *testing.T) {
	p := newPlanner()
	_, err := p.Plan(context.Background(), "t1", model.OptimizeRequest{Packages: []model.PackageIn{{ID: "x"}}})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeNoValidPackages))
	assert.Equal(t, 422, apperror.HTTPStatus(apperror.CodeOf(err)))
}

func TestPlanRejectsBadDate(t *testing.T) {
	p := newPlanner()
	_, err := p.Plan(context.Background(), "t1", model.OptimizeRequest{PlanDate: "10/03/2025"})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestPlanEmpty(t *testing.T) {
	p := newPlanner()
	resp, err := p.Plan(context.Background(), "t1", model.OptimizeRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RouteID)
	assert.Empty(t, resp.Route.Deliveries())
	assert.Zero(t, resp.Route.TotalDistanceKm)
}

func TestPlanStoresPublishesAndRecordsMetrics(t *testing.T) {
	rec := &recorder{}
	p := newPlanner(WithPublisher(rec))
	ctx := context.Background()
	req := model.OptimizeRequest{PlanDate: "2025-03-10", Packages: append(nearby(5), model.PackageIn{ID: "lost"})}

	resp, err := p.Plan(ctx, "t1", req)
	require.NoError(t, err)
	assert.Equal(t, model.StrategySolver, resp.Route.StrategyUsed)
	assert.Len(t, resp.Route.Deliveries(), 5)
	assert.Equal(t, []model.ExcludedPackage{{ID: "lost", Reason: "missing coordinate"}}, resp.Route.Excluded)

	got, err := p.Route(ctx, "t1", resp.RouteID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", got.PlanDate)
	assert.Equal(t, resp.Route.PackageOrder(), got.Route.PackageOrder())

	_, err = p.Route(ctx, "t2", resp.RouteID)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	ms, err := p.PlanMetrics(ctx, "t1", "2025-03-10")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, resp.RouteID, ms[0].RouteID)
	assert.Equal(t, model.StrategySolver, ms[0].Strategy)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, resp.RouteID, rec.recs[0].ID)

	items, next, err := p.Routes(ctx, "t1", "", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, next)

	_, _, err = p.Routes(ctx, "t1", "!!", 10)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestPlanUsesTenantSettings(t *testing.T) {
	p := newPlanner()
	ctx := context.Background()

	err := p.SaveSettings(ctx, "t1", model.OptimizerSettings{ForceStrategy: "fastest"})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))

	require.NoError(t, p.SaveSettings(ctx, "t1", model.OptimizerSettings{ForceStrategy: "heuristic"}))
	resp, err := p.Plan(ctx, "t1", model.OptimizeRequest{Packages: nearby(4)})
	require.NoError(t, err)
	assert.Equal(t, model.StrategyHeuristic, resp.Route.StrategyUsed)

	// other tenants keep the defaults
	resp, err = p.Plan(ctx, "t2", model.OptimizeRequest{Packages: nearby(4)})
	require.NoError(t, err)
	assert.Equal(t, model.StrategySolver, resp.Route.StrategyUsed)

	// a request setting wins over the tenant's
	req := model.OptimizeRequest{Packages: nearby(4)}
	req.ForceStrategy = "solver"
	resp, err = p.Plan(ctx, "t1", req)
	require.NoError(t, err)
	assert.Equal(t, model.StrategySolver, resp.Route.StrategyUsed)

	st, err := p.Status(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.StrategyHeuristic, st.ForceStrategy)
	assert.False(t, st.ExternalAvailable)
}

type datedExternal struct{ day time.Time }

func (d *datedExternal) IsAvailable() bool { return true }
func (d *datedExternal) MaxPackages() int  { return 100 }

func (d *datedExternal) Optimize(_ context.Context, pkgs []model.Package, depot model.Depot, planDate time.Time) (model.RouteResult, error) {
	d.day = planDate
	r := opt.DefaultHeuristic().Run(pkgs, depot)
	r.StrategyUsed = model.StrategyExternal
	return r, nil
}

func TestPlanPassesPlanDateToExternal(t *testing.T) {
	ext := &datedExternal{}
	sel := hybrid.New(ext, opt.NewSolver(opt.DefaultSolverOptions()), opt.DefaultHeuristic(), hybrid.DefaultOptions())
	p := New(sel, WithDepot(model.Depot{Location: model.Coordinate{Lat: 41.0, Lng: 29.0}, Label: "hub"}))

	resp, err := p.Plan(context.Background(), "t1", model.OptimizeRequest{PlanDate: "2025-06-02", Packages: nearby(3)})
	require.NoError(t, err)
	assert.Equal(t, model.StrategyExternal, resp.Route.StrategyUsed)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), ext.day)

	_, err = p.Plan(context.Background(), "t1", model.OptimizeRequest{Packages: nearby(3)})
	require.NoError(t, err)
	assert.True(t, ext.day.IsZero())
}

func TestPlanCachesResults(t *testing.T) {
	mem := cache.NewMemory(cache.Options{DefaultTTL: time.Minute})
	st := store.NewMemory()
	p := newPlanner(WithCache(cache.NewRouteCache(mem, time.Minute)), WithStore(st))
	ctx := context.Background()
	req := model.OptimizeRequest{Packages: nearby(3)}
	req.ForceStrategy = "heuristic"

	first, err := p.Plan(ctx, "t1", req)
	require.NoError(t, err)
	assert.False(t, first.Route.Cached)

	second, err := p.Plan(ctx, "t1", req)
	require.NoError(t, err)
	assert.True(t, second.Route.Cached)
	assert.Equal(t, first.Route.PackageOrder(), second.Route.PackageOrder())
	assert.NotEqual(t, first.RouteID, second.RouteID)

	other, err := p.Plan(ctx, "t2", req)
	require.NoError(t, err)
	assert.False(t, other.Route.Cached)
	assert.Equal(t, 2, mem.Len())
}
