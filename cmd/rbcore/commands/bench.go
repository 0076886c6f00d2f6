package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/rbcore/pkg/config"
	"github.com/Sumatoshi-tech/rbcore/pkg/forest"
	"github.com/Sumatoshi-tech/rbcore/pkg/observability"
	"github.com/Sumatoshi-tech/rbcore/pkg/ordmap"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbdebug"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbcore/pkg/safeconv"
)

// ErrHeightBound is returned when a shard grows taller than 2*log2(n+1).
var ErrHeightBound = errors.New("tree height exceeds the red-black bound")

const (
	defaultBenchSamples  = 50
	metricsReadTimeout   = 5 * time.Second
	metricsShutdownGrace = 5 * time.Second
	chartLineWidth       = 2
)

// BenchCommand holds the flags of the bench command.
type BenchCommand struct {
	keys        int
	ops         int
	seed        int64
	deleteRatio float64
	shards      int
	threshold   int
	samples     int
	hibernate   bool
	chartPath   string
	metricsAddr string
}

// NewBenchCommand creates the bench command.
func NewBenchCommand() *cobra.Command {
	bc := &BenchCommand{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a randomized workload over a sharded forest",
		Long: `Run a randomized insert/delete workload over a sharded forest of trees.

After the workload every shard is verified and its height is checked against
the red-black bound 2*log2(n+1). Results are printed as tables; --chart writes
an HTML line chart of height against the bound and --metrics-addr serves the
tree counters for Prometheus until interrupted. Unset flags fall back to the
bench and arena sections of the configuration.`,
		Args: cobra.NoArgs,
		RunE: bc.run,
	}

	cmd.Flags().IntVar(&bc.keys, "keys", config.DefaultBenchKeys, "Size of the random key space")
	cmd.Flags().IntVar(&bc.ops, "ops", config.DefaultBenchOps, "Number of operations")
	cmd.Flags().Int64Var(&bc.seed, "seed", config.DefaultBenchSeed, "Random seed")
	cmd.Flags().Float64Var(&bc.deleteRatio, "delete-ratio", config.DefaultBenchDeleteRatio, "Share of operations that delete")
	cmd.Flags().IntVar(&bc.shards, "shards", config.DefaultArenaShards, "Number of independent trees")
	cmd.Flags().IntVar(&bc.threshold, "hibernation-threshold", config.DefaultArenaHibernationThreshold,
		"Arena slots a shard needs before --hibernate compresses it, split across shards (0 = every shard)")
	cmd.Flags().IntVar(&bc.samples, "samples", defaultBenchSamples, "Number of height samples taken during the workload")
	cmd.Flags().BoolVar(&bc.hibernate, "hibernate", false, "Hibernate shards over the threshold after the workload, then boot them")
	cmd.Flags().StringVar(&bc.chartPath, "chart", "", "Write an HTML height chart to this path")
	cmd.Flags().StringVar(&bc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address until interrupted")

	return cmd
}

// applyConfig fills every flag the user did not set from cfg and validates the result.
func (bc *BenchCommand) applyConfig(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if !changed("keys") {
		bc.keys = cfg.Bench.Keys
	}

	if !changed("ops") {
		bc.ops = cfg.Bench.Ops
	}

	if !changed("seed") {
		bc.seed = cfg.Bench.Seed
	}

	if !changed("delete-ratio") {
		bc.deleteRatio = cfg.Bench.DeleteRatio
	}

	if !changed("shards") {
		bc.shards = cfg.Arena.Shards
	}

	if !changed("hibernation-threshold") {
		bc.threshold = cfg.Arena.HibernationThreshold
	}

	if !changed("metrics-addr") {
		bc.metricsAddr = cfg.Telemetry.MetricsAddr
	}

	merged := *cfg
	merged.Bench = config.BenchConfig{Keys: bc.keys, Ops: bc.ops, Seed: bc.seed, DeleteRatio: bc.deleteRatio}
	merged.Arena = config.ArenaConfig{HibernationThreshold: bc.threshold, Shards: bc.shards}

	if err := merged.Validate(); err != nil {
		return fmt.Errorf("bench flags: %w", err)
	}

	return nil
}

func (bc *BenchCommand) run(cmd *cobra.Command, _ []string) error {
	sess, err := openSession(cmd, observability.ModeBench)
	if err != nil {
		return err
	}
	defer sess.close()

	if err = bc.applyConfig(cmd, sess.cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := sess.providers.Logger
	meter := sess.providers.Meter

	var server *metricsServer

	if bc.metricsAddr != "" {
		server, err = startMetricsServer(bc.metricsAddr)
		if err != nil {
			return err
		}
		defer server.close(logger.Warn)

		meter = server.meter
		logger.InfoContext(ctx, "serving metrics", "addr", server.addr)
	}

	metrics, err := observability.NewTreeMetrics(meter)
	if err != nil {
		return err
	}

	ctx, span := sess.providers.Tracer.Start(ctx, "bench")
	defer span.End()

	logger.InfoContext(ctx, "bench started",
		"keys", bc.keys, "ops", bc.ops, "seed", bc.seed, "delete_ratio", bc.deleteRatio, "shards", bc.shards)

	result, err := runBench(ctx, bc.params(), metrics)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "bench finished", "elapsed", result.Elapsed, "size", result.size(), observability.TreeAttr(result.Stats))

	if !sess.quiet {
		renderBench(cmd.OutOrStdout(), bc.params(), result)
	}

	if bc.chartPath != "" {
		if err = writeChart(bc.chartPath, result.Samples); err != nil {
			return err
		}

		logger.InfoContext(ctx, "chart written", "path", bc.chartPath)
	}

	if server != nil {
		logger.InfoContext(ctx, "bench done, serving metrics until interrupted", "addr", server.addr)
		<-ctx.Done()
	}

	return nil
}

func (bc *BenchCommand) params() benchParams {
	return benchParams{
		Keys:        bc.keys,
		Ops:         bc.ops,
		Seed:        bc.seed,
		DeleteRatio: bc.deleteRatio,
		Shards:      bc.shards,
		Threshold:   bc.threshold,
		Samples:     bc.samples,
		Hibernate:   bc.hibernate,
	}
}

type benchParams struct {
	Keys        int
	Ops         int
	Seed        int64
	DeleteRatio float64
	Shards      int
	Threshold   int
	Samples     int
	Hibernate   bool
}

type shardShape struct {
	Size        int
	Height      int
	BlackHeight int
	Bound       float64
	Slots       int
	Bytes       uint64
	Stats       rbtree.Stats
}

type benchSample struct {
	Op     int
	Size   int
	Height int
	Bound  float64
}

type benchResult struct {
	Inserted         int
	Duplicates       int
	Deleted          int
	Missing          int
	Elapsed          time.Duration
	Shards           []shardShape
	Samples          []benchSample
	Stats            rbtree.Stats
	ResidentBytes    uint64
	HibernatedBytes  uint64
	HibernatedShards int
}

func (result benchResult) size() int {
	total := 0
	for _, sh := range result.Shards {
		total += sh.Size
	}

	return total
}

// runBench drives the random workload, verifies every shard and collects shapes.
func runBench(ctx context.Context, params benchParams, metrics *observability.TreeMetrics) (benchResult, error) {
	trees := forest.New[int, struct{}](params.Shards, params.Threshold)
	rng := rand.New(rand.NewSource(params.Seed)) //nolint:gosec // reproducible workload, not security sensitive.

	sampleEvery := params.Ops
	if params.Samples > 0 {
		sampleEvery = max(1, params.Ops/params.Samples)
	}

	var result benchResult

	start := time.Now()

	for op := range params.Ops {
		key := rng.Intn(params.Keys)

		if rng.Float64() < params.DeleteRatio {
			removed, err := trees.Delete(key)
			if err != nil {
				return result, err
			}

			if removed {
				result.Deleted++
			} else {
				result.Missing++
			}
		} else {
			added, err := trees.Insert(key, struct{}{})
			if err != nil {
				return result, err
			}

			if added {
				result.Inserted++
			} else {
				result.Duplicates++
			}
		}

		if sampleEvery > 0 && (op+1)%sampleEvery == 0 {
			sample, err := takeSample(ctx, trees, op+1)
			if err != nil {
				return result, err
			}

			result.Samples = append(result.Samples, sample)
		}
	}

	result.Elapsed = time.Since(start)

	if err := trees.Verify(ctx); err != nil {
		return result, err
	}

	shapes, err := collectShapes(ctx, trees)
	if err != nil {
		return result, err
	}

	result.Shards = shapes
	result.Stats = trees.Stats()

	for idx, shape := range shapes {
		if float64(shape.Height) > shape.Bound {
			return result, fmt.Errorf("shard %d: height %d, bound %.2f: %w", idx, shape.Height, shape.Bound, ErrHeightBound)
		}

		if metrics != nil {
			metrics.RecordStats(ctx, idx, shape.Stats)
			metrics.ObserveShape(ctx, idx, shape.Height, shape.Size)
		}

		result.ResidentBytes += shape.Bytes
	}

	if params.Hibernate {
		if err = hibernateCycle(ctx, trees, &result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func collectShapes(ctx context.Context, trees *forest.Forest[int, struct{}]) ([]shardShape, error) {
	shapes := make([]shardShape, trees.ShardCount())

	err := trees.Each(ctx, func(_ context.Context, idx int, entries *ordmap.Map[int, struct{}]) error {
		tree := entries.Tree()

		shapes[idx] = shardShape{
			Size:        entries.Len(),
			Height:      rbdebug.Height(tree),
			BlackHeight: rbdebug.BlackHeight(tree),
			Bound:       rbdebug.HeightBound(entries.Len()),
			Slots:       tree.Allocator().Size(),
			Bytes:       tree.Allocator().Bytes(),
			Stats:       entries.Stats(),
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect shard shapes: %w", err)
	}

	return shapes, nil
}

func takeSample(ctx context.Context, trees *forest.Forest[int, struct{}], op int) (benchSample, error) {
	var (
		mu     sync.Mutex
		sample = benchSample{Op: op}
	)

	largest := 0

	err := trees.Each(ctx, func(_ context.Context, _ int, entries *ordmap.Map[int, struct{}]) error {
		height := rbdebug.Height(entries.Tree())

		mu.Lock()
		defer mu.Unlock()

		sample.Size += entries.Len()
		sample.Height = max(sample.Height, height)
		largest = max(largest, entries.Len())

		return nil
	})
	if err != nil {
		return sample, fmt.Errorf("sample at op %d: %w", op, err)
	}

	sample.Bound = rbdebug.HeightBound(largest)

	return sample, nil
}

func hibernateCycle(ctx context.Context, trees *forest.Forest[int, struct{}], result *benchResult) error {
	trees.Hibernate()

	result.HibernatedShards = trees.Hibernated()

	for _, allocator := range trees.Allocators() {
		result.HibernatedBytes += allocator.HibernatedBytes()
	}

	trees.Boot()

	if err := trees.Verify(ctx); err != nil {
		return fmt.Errorf("after boot: %w", err)
	}

	return nil
}

func renderBench(writer io.Writer, params benchParams, result benchResult) {
	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.SetTitle("Workload")
	summary.AppendRows([]table.Row{
		{"operations", humanize.Comma(int64(params.Ops))},
		{"key space", humanize.Comma(int64(params.Keys))},
		{"inserted", humanize.Comma(int64(result.Inserted))},
		{"duplicates", humanize.Comma(int64(result.Duplicates))},
		{"deleted", humanize.Comma(int64(result.Deleted))},
		{"absent", humanize.Comma(int64(result.Missing))},
		{"final size", humanize.Comma(int64(result.size()))},
		{"elapsed", result.Elapsed.Round(time.Millisecond).String()},
		{"arena", humanize.IBytes(result.ResidentBytes)},
	})

	if params.Hibernate {
		summary.AppendRow(table.Row{"hibernated", fmt.Sprintf("%s in %d of %d shards",
			humanize.IBytes(result.HibernatedBytes), result.HibernatedShards, len(result.Shards))})
	}

	fmt.Fprintln(writer, summary.Render())

	shards := table.NewWriter()
	shards.SetStyle(table.StyleLight)
	shards.SetTitle("Shards")
	shards.AppendHeader(table.Row{
		"#", "Nodes", "Height", "Bound", "Black height", "Slots", "Arena",
		"Rotations", "Swaps", "Red sib.", "Black neph.", "Near red", "Far red",
	})

	for idx, shape := range result.Shards {
		shards.AppendRow(table.Row{
			idx, humanize.Comma(int64(shape.Size)), shape.Height, fmt.Sprintf("%.2f", shape.Bound), shape.BlackHeight,
			humanize.Comma(int64(shape.Slots)), humanize.IBytes(shape.Bytes),
			humanize.Comma(safeconv.MustUint64ToInt64(shape.Stats.Rotations)), humanize.Comma(safeconv.MustUint64ToInt64(shape.Stats.Swaps)),
			shape.Stats.RedSibling, shape.Stats.BlackNephews, shape.Stats.NearRedNephew, shape.Stats.FarRedNephew,
		})
	}

	total := result.Stats

	shards.AppendFooter(table.Row{
		"Total", humanize.Comma(int64(result.size())), "", "", "", "", humanize.IBytes(result.ResidentBytes),
		humanize.Comma(safeconv.MustUint64ToInt64(total.Rotations)), humanize.Comma(safeconv.MustUint64ToInt64(total.Swaps)),
		total.RedSibling, total.BlackNephews, total.NearRedNephew, total.FarRedNephew,
	})

	fmt.Fprintln(writer, shards.Render())
}

func buildChart(samples []benchSample) *charts.Line {
	labels := make([]string, len(samples))
	heights := make([]opts.LineData, len(samples))
	bounds := make([]opts.LineData, len(samples))
	sizes := make([]opts.LineData, len(samples))

	for idx, sample := range samples {
		labels[idx] = humanize.Comma(int64(sample.Op))
		heights[idx] = opts.LineData{Value: sample.Height}
		bounds[idx] = opts.LineData{Value: fmt.Sprintf("%.2f", sample.Bound)}
		sizes[idx] = opts.LineData{Value: sample.Size}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "rbcore bench", Width: "100%", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tree height", Subtitle: "tallest shard against 2*log2(n+1) of the largest shard"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Operations"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Levels"}),
	)
	line.SetXAxis(labels)
	line.AddSeries("Height", heights, charts.WithLineStyleOpts(opts.LineStyle{Width: chartLineWidth}))
	line.AddSeries("Bound", bounds, charts.WithLineStyleOpts(opts.LineStyle{Width: chartLineWidth, Type: "dashed"}))
	line.AddSeries("Nodes", sizes, charts.WithLineStyleOpts(opts.LineStyle{Width: 1, Opacity: opts.Float(0.4)}))

	return line
}

func writeChart(path string, samples []benchSample) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	renderErr := buildChart(samples).Render(file)
	closeErr := file.Close()

	if renderErr != nil {
		return fmt.Errorf("render chart: %w", renderErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close chart: %w", closeErr)
	}

	return nil
}

type metricsServer struct {
	addr   string
	meter  metric.Meter
	server *http.Server
}

func startMetricsServer(addr string) (*metricsServer, error) {
	handler, provider, err := observability.PrometheusHandler()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadTimeout}

	go func() {
		_ = server.Serve(listener)
	}()

	return &metricsServer{
		addr:   listener.Addr().String(),
		meter:  provider.Meter("rbcore"),
		server: server,
	}, nil
}

func (ms *metricsServer) close(warn func(msg string, args ...any)) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownGrace)
	defer cancel()

	if err := ms.server.Shutdown(ctx); err != nil {
		warn("metrics server shutdown failed", "error", err)
	}
}
