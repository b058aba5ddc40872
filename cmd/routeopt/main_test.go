package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadProblemYAML(t *testing.T) {
	path := writeFile(t, "p.yaml", `
planDate: "2025-03-10"
forceStrategy: heuristic
depot: {latitude: 41.0, longitude: 29.0, label: hub}
packages:
  - id: a
    latitude: 41.01
    longitude: 29.01
    deliveryType: express
  - id: b
    latitude: 41.02
    longitude: 29.00
    deliveryType: scheduled
    timeWindow: {start: "10:00", end: "12:00"}
  - id: c
`)
	req, err := readProblem(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", req.PlanDate)
	assert.Equal(t, "heuristic", req.ForceStrategy)
	require.NotNil(t, req.Depot)
	assert.Equal(t, "hub", req.Depot.Label)
	require.Len(t, req.Packages, 3)
	require.NotNil(t, req.Packages[1].TimeWindow)
	assert.Equal(t, "10:00", req.Packages[1].TimeWindow.Start)
	assert.Nil(t, req.Packages[2].Latitude)
}

func TestReadProblemJSON(t *testing.T) {
	path := writeFile(t, "p.json", `{"packages":[{"id":"a","latitude":41.01,"longitude":29.01,"deliveryType":"standard"}]}`)
	req, err := readProblem(path)
	require.NoError(t, err)
	require.Len(t, req.Packages, 1)
	assert.InDelta(t, 41.01, *req.Packages[0].Latitude, 1e-9)
}

func TestReadProblemErrors(t *testing.T) {
	_, err := readProblem(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = readProblem(writeFile(t, "bad.yaml", "packages: [\n"))
	assert.Error(t, err)
}

func TestRunHeuristic(t *testing.T) {
	path := writeFile(t, "p.yaml", `
packages:
  - {id: a, latitude: 41.01, longitude: 28.98, deliveryType: standard}
  - {id: b, latitude: 41.02, longitude: 28.99, deliveryType: express}
`)
	assert.NoError(t, run(path, "", 0, "heuristic"))
}
