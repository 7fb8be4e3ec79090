package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spindex/lbvh"
	cli "github.com/urfave/cli/v2"
)

// Shared flag definitions to eliminate duplication
var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to TOML configuration file",
	}
	countFlag = &cli.IntFlag{
		Name:  "count",
		Usage: "Number of boxes to generate (overrides config)",
	}
	dimsFlag = &cli.IntFlag{
		Name:  "dims",
		Usage: "Dimensionality of the dataset, 2 or 3 (overrides config)",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Random seed for dataset generation (overrides config)",
	}
	backendFlag = &cli.StringFlag{
		Name:  "backend",
		Usage: "Execution backend: sequential, threads or device (overrides config)",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Worker count for the threads backend; 0 means NumCPU",
	}
	morton64Flag = &cli.BoolFlag{
		Name:  "morton64",
		Usage: "Use 64-bit morton codes",
	}
	chartFlag = &cli.StringFlag{
		Name:  "chart",
		Usage: "Path where to save the bench timing chart (e.g. '/tmp/bench.html'). If not provided, no chart is generated.",
	}
	nearestFlag = &cli.StringFlag{
		Name:  "nearest",
		Usage: "Nearest-box query point, comma separated (e.g. '1.5,2,0')",
	}
	containsFlag = &cli.StringFlag{
		Name:  "contains",
		Usage: "Point-containment query point, comma separated",
	}
	searchFlag = &cli.StringFlag{
		Name:  "search",
		Usage: "Box-overlap query as min,max corners: 'x0,y0,z0,x1,y1,z1'",
	}
)

var app = &cli.App{
	Name:  "lbvh",
	Usage: "Build linear BVH spatial indexes and query them",
	Commands: []*cli.Command{
		{
			Name:   "build",
			Usage:  "Generate a dataset, build a tree and print its stats",
			Flags:  []cli.Flag{configFlag, countFlag, dimsFlag, seedFlag, backendFlag, workersFlag, morton64Flag},
			Action: runBuild,
		},
		{
			Name:   "query",
			Usage:  "Build a tree and run a one-shot query against it",
			Flags:  []cli.Flag{configFlag, countFlag, dimsFlag, seedFlag, backendFlag, workersFlag, morton64Flag, nearestFlag, containsFlag, searchFlag},
			Action: runQuery,
		},
		{
			Name:   "bench",
			Usage:  "Build across backends and sizes, query concurrently, report timings",
			Flags:  []cli.Flag{configFlag, dimsFlag, seedFlag, workersFlag, morton64Flag, chartFlag},
			Action: runBench,
		},
	},
}

func main() {
	log.SetFlags(0)
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("lbvh: %v", err)
	}
}

// loadConfig resolves the config file plus flag overrides.
func loadConfig(c *cli.Context) (*Config, error) {
	cfg := DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("count") {
		cfg.Dataset.Count = c.Int("count")
	}
	if c.IsSet("dims") {
		cfg.Dataset.Dims = c.Int("dims")
	}
	if c.IsSet("seed") {
		cfg.Dataset.Seed = c.Int64("seed")
	}
	if c.IsSet("backend") {
		cfg.Build.Backend = c.String("backend")
	}
	if c.IsSet("workers") {
		cfg.Build.Workers = c.Int("workers")
	}
	if c.IsSet("morton64") {
		cfg.Build.Morton64 = c.Bool("morton64")
	}
	if c.IsSet("chart") {
		cfg.Bench.ChartPath = c.String("chart")
	}
	return cfg, cfg.Validate()
}

func runBuild(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := cfg.buildOptions()
	if err != nil {
		return err
	}

	boxes := cfg.Dataset.Generate()
	start := time.Now()
	tree, err := lbvh.Build(boxes, opts...)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	bounds := tree.Bounds()
	log.Printf("backend:  %s", cfg.Build.Backend)
	log.Printf("leaves:   %d", tree.NumLeaves())
	log.Printf("inner:    %d", tree.NumInner())
	log.Printf("bounds:   min (%g, %g, %g) max (%g, %g, %g)",
		bounds.Min[0], bounds.Min[1], bounds.Min[2],
		bounds.Max[0], bounds.Max[1], bounds.Max[2])
	log.Printf("built in: %s", elapsed)
	return nil
}

func runQuery(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := cfg.buildOptions()
	if err != nil {
		return err
	}
	tree, err := lbvh.Build(cfg.Dataset.Generate(), opts...)
	if err != nil {
		return err
	}

	switch {
	case c.IsSet("nearest"):
		p, err := parsePoint(c.String("nearest"))
		if err != nil {
			return err
		}
		id, distSq, ok := tree.Nearest(p)
		if !ok {
			return fmt.Errorf("empty tree")
		}
		log.Printf("nearest box: %d (squared distance %g)", id, distSq)

	case c.IsSet("contains"):
		p, err := parsePoint(c.String("contains"))
		if err != nil {
			return err
		}
		ids := tree.Contains(p, nil)
		log.Printf("%d boxes contain (%g, %g, %g): %v", len(ids), p[0], p[1], p[2], ids)

	case c.IsSet("search"):
		box, err := parseBox(c.String("search"))
		if err != nil {
			return err
		}
		ids := tree.Search(box)
		log.Printf("%d boxes overlap the query: %v", len(ids), ids)

	default:
		return fmt.Errorf("one of --nearest, --contains or --search is required")
	}
	return nil
}

func parseFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", want, len(parts))
	}
	vals := make([]float64, want)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", p, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func parsePoint(s string) ([3]float64, error) {
	vals, err := parseFloats(s, 3)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{vals[0], vals[1], vals[2]}, nil
}

func parseBox(s string) (lbvh.Box[float64], error) {
	vals, err := parseFloats(s, 6)
	if err != nil {
		return lbvh.Box[float64]{}, err
	}
	return lbvh.NewBox3(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]), nil
}
