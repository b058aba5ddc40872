package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeopt/internal/apperror"
	"routeopt/internal/model"
)

var (
	depot    = model.Depot{Location: model.Coordinate{Lat: 41.0, Lng: 29.0}, Label: "hub"}
	fixedNow = time.Date(2025, 3, 10, 6, 30, 0, 0, time.UTC)
)

func testPackages() []model.Package {
	w := model.TimeWindow{Start: 600, End: 660}
	return []model.Package{
		{ID: "p1", Location: model.Coordinate{Lat: 41.01, Lng: 29.01}, Type: model.Express},
		{ID: "p2", Location: model.Coordinate{Lat: 41.02, Lng: 29.02}, Type: model.Scheduled, Window: &w},
		{ID: "p3", Location: model.Coordinate{Lat: 41.03, Lng: 29.00}, Type: model.Standard},
	}
}

func newTestGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := New(context.Background(), Config{Enabled: true, ProjectID: "demo", Endpoint: srv.URL, MaxPackages: 3},
		WithHTTPClient(srv.Client()), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return g
}

func TestUnavailableWithoutConfig(t *testing.T) {
	g, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, g.IsAvailable())
	assert.Equal(t, 100, g.MaxPackages())

	_, err = g.Optimize(context.Background(), testPackages(), depot, time.Time{})
	assert.ErrorIs(t, err, ErrUnavailable)

	var nilGateway *Gateway
	assert.False(t, nilGateway.IsAvailable())
}

func TestMissingCredentialsFile(t *testing.T) {
	g, err := New(context.Background(), Config{Enabled: true, ProjectID: "demo",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeGatewayUnavailable))
	require.NotNil(t, g)
	assert.False(t, g.IsAvailable())
}

func TestOptimizeMapsResponse(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/projects/demo:optimizeTours", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req optimizeToursRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		if !assert.Len(t, req.Model.Shipments, 3) {
			return
		}
		assert.Equal(t, "2025-03-10T08:00:00Z", req.Model.GlobalStartTime)
		assert.Equal(t, "2025-03-10T18:00:00Z", req.Model.GlobalEndTime)
		assert.Equal(t, "300s", req.Model.Shipments[0].Deliveries[0].Duration)
		assert.Equal(t, "600s", req.Model.Shipments[1].Deliveries[0].Duration)
		assert.Equal(t, "900s", req.Model.Shipments[2].Deliveries[0].Duration)
		assert.Equal(t, "2025-03-10T10:00:00Z", req.Model.Shipments[1].Deliveries[0].TimeWindows[0].StartTime)
		assert.Equal(t, "p3", req.Model.Shipments[2].Label)
		assert.Len(t, req.Model.Vehicles, 1)
		assert.Equal(t, 41.0, req.Model.Vehicles[0].StartLocation.Latitude)

		// shipmentIndex 0 is omitted on the wire, as proto3 JSON does.
		_, _ = w.Write([]byte(`{"routes":[{
			"vehicleStartTime":"2025-03-10T08:00:00Z",
			"vehicleEndTime":"2025-03-10T10:40:00Z",
			"visits":[
				{"shipmentIndex":2,"startTime":"2025-03-10T08:06:00Z"},
				{"startTime":"2025-03-10T08:25:00Z"},
				{"shipmentIndex":1,"startTime":"2025-03-10T10:00:00Z"}],
			"transitions":[
				{"travelDuration":"360s","travelDistanceMeters":3500},
				{"travelDuration":"240s","travelDistanceMeters":2600},
				{"travelDuration":"180s","travelDistanceMeters":1500},
				{"travelDuration":"420s","travelDistanceMeters":3000}]}]}`))
	})

	res, err := g.Optimize(context.Background(), testPackages(), depot, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, model.StrategyExternal, res.StrategyUsed)
	assert.Equal(t, []string{"p3", "p1", "p2"}, res.PackageOrder())
	stops := res.Deliveries()
	assert.Equal(t, "08:06", stops[0].EstimatedArrival)
	assert.Equal(t, "10:00", stops[2].EstimatedArrival)
	assert.Equal(t, 3.5, stops[0].DistanceFromPreviousKm)
	assert.Equal(t, 6.0, stops[0].DurationFromPreviousMinutes)
	assert.Equal(t, 3.0, res.ReturnDistanceKm)
	assert.InDelta(t, 10.6, res.TotalDistanceKm, 1e-9)
	assert.Equal(t, 160.0, res.TotalDurationMinutes)
	assert.Zero(t, res.LateStops)
}

func TestOptimizeUsesPlanDate(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var req optimizeToursRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "2025-06-02T08:00:00Z", req.Model.GlobalStartTime)
		assert.Equal(t, "2025-06-02T18:00:00Z", req.Model.GlobalEndTime)
		assert.Equal(t, "2025-06-02T10:00:00Z", req.Model.Shipments[1].Deliveries[0].TimeWindows[0].StartTime)
		_, _ = w.Write([]byte(`{"routes":[{
			"vehicleStartTime":"2025-06-02T09:00:00Z",
			"vehicleEndTime":"2025-06-02T11:00:00Z",
			"visits":[
				{"startTime":"2025-06-02T09:10:00Z"},
				{"shipmentIndex":1,"startTime":"2025-06-02T10:05:00Z"},
				{"shipmentIndex":2,"startTime":"2025-06-02T10:30:00Z"}],
			"transitions":[
				{"travelDuration":"600s","travelDistanceMeters":1000},
				{"travelDuration":"600s","travelDistanceMeters":1000},
				{"travelDuration":"600s","travelDistanceMeters":1000},
				{"travelDuration":"600s","travelDistanceMeters":1000}]}]}`))
	})

	planDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	res, err := g.Optimize(context.Background(), testPackages(), depot, planDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, res.PackageOrder())
	assert.Equal(t, "10:05", res.Deliveries()[1].EstimatedArrival)
}

func TestOptimizeDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"code":503}}`, http.StatusServiceUnavailable)
	})
	_, err := g.Optimize(context.Background(), testPackages(), depot, time.Time{})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeGatewayFailed))
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOptimizeRejectsSkippedShipments(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[{"visits":[]}],"skippedShipments":[{"index":1,"label":"p2"}]}`))
	})
	_, err := g.Optimize(context.Background(), testPackages(), depot, time.Time{})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeGatewayFailed))
	assert.Contains(t, err.Error(), "skipped")
}

func TestOptimizeRejectsDuplicateVisit(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[{"visits":[
			{"shipmentIndex":1,"startTime":"2025-03-10T08:10:00Z"},
			{"shipmentIndex":1,"startTime":"2025-03-10T08:20:00Z"},
			{"shipmentIndex":2,"startTime":"2025-03-10T08:30:00Z"}],
			"transitions":[{},{},{},{}]}]}`))
	})
	_, err := g.Optimize(context.Background(), testPackages(), depot, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad shipment index")
}

func TestOptimizeCap(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("capped request must not reach the service")
	})
	pkgs := append(testPackages(), model.Package{ID: "p4", Location: model.Coordinate{Lat: 41, Lng: 29}, Type: model.Standard})
	_, err := g.Optimize(context.Background(), pkgs, depot, time.Time{})
	assert.True(t, apperror.Is(err, apperror.CodeGatewayCapped))
}
