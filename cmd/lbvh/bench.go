package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/spindex/lbvh"
	cli "github.com/urfave/cli/v2"
)

var benchBackends = []string{"sequential", "threads", "device"}

func runBench(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// build times in milliseconds, per backend, per size
	buildMS := make(map[string][]float64, len(benchBackends))

	for _, size := range cfg.Bench.Sizes {
		boxes := cfg.Dataset.generateN(size)

		for _, name := range benchBackends {
			be, err := backendFromName(name, cfg.Build.Workers)
			if err != nil {
				return err
			}
			opts := []lbvh.Option[float64]{
				lbvh.WithBackend[float64](be),
				lbvh.WithDims[float64](cfg.Dataset.Dims),
			}
			if cfg.Build.Morton64 {
				opts = append(opts, lbvh.WithMorton64[float64]())
			}

			start := time.Now()
			tree, err := lbvh.Build(boxes, opts...)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)
			buildMS[name] = append(buildMS[name], float64(elapsed.Microseconds())/1000)

			qps, visited := runQueryWorkers(cfg, tree)
			log.Printf("%-10s %8d boxes  build %8.2f ms  %9.0f queries/s  %d distinct leaves visited",
				name, size, float64(elapsed.Microseconds())/1000, qps, visited)
		}
	}

	if cfg.Bench.ChartPath != "" {
		if err := writeBenchChart(cfg.Bench.ChartPath, cfg.Bench.Sizes, buildMS); err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
		log.Printf("chart written to %s", cfg.Bench.ChartPath)
	}
	return nil
}

// runQueryWorkers hammers the tree from concurrent goroutines, mixing
// nearest and overlap queries, and counts per-leaf visits in a shared
// lock-free map.
func runQueryWorkers(cfg *Config, tree *lbvh.BVH[float64]) (qps float64, distinctLeaves int) {
	workers := cfg.Bench.QueryWorkers
	if workers <= 0 {
		workers = 1
	}
	perWorker := cfg.Bench.Queries / workers
	if perWorker == 0 {
		perWorker = 1
	}

	visits := haxmap.New[uint32, int64]()

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			results := []int{}
			for q := 0; q < perWorker; q++ {
				var p [3]float64
				for a := 0; a < cfg.Dataset.Dims; a++ {
					p[a] = rng.Float64() * cfg.Dataset.Extent
				}
				if q%2 == 0 {
					if id, _, ok := tree.Nearest(p); ok {
						count, _ := visits.Get(uint32(id))
						visits.Set(uint32(id), count+1)
					}
				} else {
					query := lbvh.NewBox3(p[0], p[1], p[2], p[0]+10, p[1]+10, p[2]+10)
					results = tree.SearchFast(query, results)
					for _, id := range results {
						count, _ := visits.Get(uint32(id))
						visits.Set(uint32(id), count+1)
					}
				}
			}
		}(cfg.Dataset.Seed + int64(w))
	}
	wg.Wait()
	elapsed := time.Since(start).Seconds()

	total := workers * perWorker
	return float64(total) / elapsed, int(visits.Len())
}

func writeBenchChart(path string, sizes []int, buildMS map[string][]float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "lbvh bench",
			Theme:     types.ThemeVintage,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Build time by backend",
			Left:  "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Trigger: "axis",
		}),
	)

	labels := make([]string, len(sizes))
	for i, s := range sizes {
		labels[i] = fmt.Sprintf("%d", s)
	}
	line.SetXAxis(labels)

	for _, name := range benchBackends {
		series := make([]opts.LineData, len(buildMS[name]))
		for i, ms := range buildMS[name] {
			series[i] = opts.LineData{Value: ms}
		}
		line.AddSeries(name, series)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}
