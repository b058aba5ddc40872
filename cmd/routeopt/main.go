// Command routeopt optimizes one problem file and prints the route as JSON.
//
//	routeopt -problem stops.yaml [-config config.yaml] [-budget 2s] [-strategy heuristic]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"routeopt/internal/app"
	"routeopt/internal/config"
	"routeopt/internal/logger"
	"routeopt/internal/model"
	"routeopt/internal/planner"
)

func main() {
	problem := flag.String("problem", "", "problem file (YAML or JSON)")
	cfgPath := flag.String("config", "", "config file")
	budget := flag.Duration("budget", 0, "solver time budget override")
	strategy := flag.String("strategy", "", "force a starting tier: external, solver or heuristic")
	flag.Parse()

	if *problem == "" {
		fmt.Fprintln(os.Stderr, "usage: routeopt -problem file.yaml [-config cfg.yaml] [-budget 2s] [-strategy name]")
		os.Exit(2)
	}
	if err := run(*problem, *cfgPath, *budget, *strategy); err != nil {
		fmt.Fprintln(os.Stderr, "routeopt:", err)
		os.Exit(1)
	}
}

func run(problemPath, cfgPath string, budget time.Duration, strategy string) error {
	var opts []config.LoaderOption
	if cfgPath != "" {
		opts = append(opts, config.WithConfigPaths(cfgPath))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		return err
	}
	lc := app.LoggerConfig(cfg)
	lc.Output = "stderr"
	logger.InitWithConfig(lc)
	if budget > 0 {
		cfg.Solver.TimeBudget = budget
	}

	req, err := readProblem(problemPath)
	if err != nil {
		return err
	}
	if strategy != "" {
		req.ForceStrategy = strategy
	}

	ctx := context.Background()
	p := planner.New(app.NewSelector(ctx, cfg), planner.WithDepot(app.Depot(cfg)))
	tenant := req.TenantID
	if tenant == "" {
		tenant = "t_cli"
	}
	resp, err := p.Plan(ctx, tenant, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Route)
}

// readProblem decodes a YAML problem file. JSON is valid YAML.
func readProblem(path string) (model.OptimizeRequest, error) {
	var req model.OptimizeRequest
	b, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}
	if err := yaml.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("decode %s: %w", path, err)
	}
	return req, nil
}
