package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/gridopt/envelope-service/pkg/envelope"
	"github.com/gridopt/envelope-service/pkg/network"
	"github.com/gridopt/envelope-service/pkg/solver"
)

func main() {
	fmt.Println("Dynamic Operating Envelope Service")
	fmt.Println("==================================")

	if len(os.Args) < 2 {
		fmt.Println("Usage: envelope-service <mode> [alpha] [beta] [config_file]")
		fmt.Println("Modes:")
		fmt.Println("  demo-opf - minimize curtailment on the built-in demo feeder")
		fmt.Println("  demo-doe - compute operating envelopes on the built-in demo feeder")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  envelope-service demo-opf")
		fmt.Println("  envelope-service demo-doe 1.0 0.5")
		os.Exit(1)
	}

	mode := os.Args[1]
	alpha, beta := 1.0, 1.0
	if len(os.Args) > 2 {
		alpha = parseWeight(os.Args[2], "alpha")
	}
	if len(os.Args) > 3 {
		beta = parseWeight(os.Args[3], "beta")
	}

	cfg := envelope.NewConfig()
	if len(os.Args) > 4 {
		if err := cfg.LoadFromFile(os.Args[4]); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	graph, err := demoFeeder()
	if err != nil {
		log.Fatalf("Failed to build demo network: %v", err)
	}

	engine := envelope.NewEngine(graph, cfg, solver.NewSimplex(cfg.SolverTolerance()))

	req := &envelope.SolveRequest{
		Formulation:      envelope.FlowDC,
		OperationalNodes: []int{2, 3, 4, 5, 6},
		ParentNodes:      []int{2},
		Alpha:            &alpha,
		Beta:             &beta,
	}
	switch mode {
	case "demo-opf":
		req.Objective = envelope.ObjectiveOPF
	case "demo-doe":
		req.Objective = envelope.ObjectiveDOE
		req.ChildrenNodes = []int{6}
	default:
		log.Fatalf("Unknown mode: %s", mode)
	}

	result, err := engine.Solve(context.Background(), req)
	if err != nil {
		log.Fatalf("Solve failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

func parseWeight(arg, name string) float64 {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || v < 0 {
		log.Fatalf("Invalid %s %q: expected a non-negative number", name, arg)
	}
	return v
}

// demoFeeder builds a small radial medium-voltage feeder: an external grid
// behind a substation transformer, four feeder buses, and a boundary bus with
// an external sub-network hanging off it. Buses 2-6 form the operational
// area, bus 2 is the parent and bus 6 the child.
func demoFeeder() (*network.Graph, error) {
	rating := 0.4

	nodes := []network.NodeRecord{
		{ID: 1, Name: "ext_grid", VnKV: 110, GenMW: 5.0},
		{ID: 2, Name: "substation", VnKV: 20},
		{ID: 3, Name: "feeder_a", VnKV: 20, LoadMW: 0.4},
		{ID: 4, Name: "feeder_b", VnKV: 20, LoadMW: 0.6, GenMW: 0.5},
		{ID: 5, Name: "feeder_c", VnKV: 20, LoadMW: 0.3},
		{ID: 6, Name: "boundary", VnKV: 20, LoadMW: 0.2},
		{ID: 7, Name: "downstream_a", VnKV: 20, LoadMW: 1.2},
		{ID: 8, Name: "downstream_b", VnKV: 20, GenMW: 0.4},
	}
	lines := []network.LineRecord{
		{From: 2, To: 3, Name: "l23", LengthKM: 1.5, ROhmPerKM: 0.25, XOhmPerKM: 0.35, MaxIKA: &rating},
		{From: 3, To: 4, Name: "l34", LengthKM: 2.0, ROhmPerKM: 0.25, XOhmPerKM: 0.35, MaxIKA: &rating},
		{From: 4, To: 5, Name: "l45", LengthKM: 1.0, ROhmPerKM: 0.25, XOhmPerKM: 0.35, MaxIKA: &rating},
		{From: 5, To: 6, Name: "l56", LengthKM: 1.2, ROhmPerKM: 0.25, XOhmPerKM: 0.35, MaxIKA: &rating},
		{From: 6, To: 7, Name: "l67", LengthKM: 2.5, ROhmPerKM: 0.25, XOhmPerKM: 0.35},
		{From: 7, To: 8, Name: "l78", LengthKM: 1.8, ROhmPerKM: 0.25, XOhmPerKM: 0.35},
	}
	trafos := []network.TransformerRecord{
		{HVBus: 1, LVBus: 2, Name: "t12"},
	}

	return network.BuildGraph(1.0, nodes, lines, trafos, nil)
}
