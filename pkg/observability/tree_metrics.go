package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbcore/pkg/safeconv"
)

const (
	metricOps        = "rbcore.ops"
	metricRotations  = "rbcore.rotations"
	metricSwaps      = "rbcore.swaps"
	metricFixupCases = "rbcore.fixup.cases"
	metricHeight     = "rbcore.tree.height"
	metricNodes      = "rbcore.tree.nodes"

	attrOp    = "op"
	attrCase  = "case"
	attrShard = "shard"

	opLink        = "link"
	opInsertFixup = "insert_fixup"
	opDelete      = "delete"

	caseRedSibling    = "red_sibling"
	caseBlackNephews  = "black_nephews"
	caseNearRedNephew = "near_red_nephew"
	caseFarRedNephew  = "far_red_nephew"
)

// heightBucketBoundaries covers trees from a handful of nodes up to the uint32 arena limit.
var heightBucketBoundaries = []float64{1, 2, 4, 8, 12, 16, 20, 24, 32, 40, 48, 64}

// TreeMetrics holds the OTel instruments describing red-black tree work.
type TreeMetrics struct {
	ops        metric.Int64Counter
	rotations  metric.Int64Counter
	swaps      metric.Int64Counter
	fixupCases metric.Int64Counter
	height     metric.Int64Histogram
	nodes      metric.Int64Histogram
}

// NewTreeMetrics creates tree instruments from the given meter.
func NewTreeMetrics(mt metric.Meter) (*TreeMetrics, error) {
	ops, err := mt.Int64Counter(metricOps,
		metric.WithDescription("Structural operations by kind"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOps, err)
	}

	rotations, err := mt.Int64Counter(metricRotations,
		metric.WithDescription("Single rotations performed"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRotations, err)
	}

	swaps, err := mt.Int64Counter(metricSwaps,
		metric.WithDescription("Structural swaps performed while deleting internal nodes"),
		metric.WithUnit("{swap}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSwaps, err)
	}

	fixupCases, err := mt.Int64Counter(metricFixupCases,
		metric.WithDescription("Double-black fixup steps by case"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFixupCases, err)
	}

	height, err := mt.Int64Histogram(metricHeight,
		metric.WithDescription("Tree height observed after a workload"),
		metric.WithUnit("{level}"),
		metric.WithExplicitBucketBoundaries(heightBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricHeight, err)
	}

	nodes, err := mt.Int64Histogram(metricNodes,
		metric.WithDescription("Tree size observed after a workload"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricNodes, err)
	}

	return &TreeMetrics{
		ops:        ops,
		rotations:  rotations,
		swaps:      swaps,
		fixupCases: fixupCases,
		height:     height,
		nodes:      nodes,
	}, nil
}

// RecordStats adds a counter delta, typically Stats().Sub(previous), for one shard.
func (tm *TreeMetrics) RecordStats(ctx context.Context, shard int, delta rbtree.Stats) {
	shardAttr := attribute.Int(attrShard, shard)

	addIfAny := func(counter metric.Int64Counter, value uint64, attrs ...attribute.KeyValue) {
		if value == 0 {
			return
		}

		counter.Add(ctx, safeconv.MustUint64ToInt64(value), metric.WithAttributes(append(attrs, shardAttr)...))
	}

	addIfAny(tm.ops, delta.Links, attribute.String(attrOp, opLink))
	addIfAny(tm.ops, delta.InsertFixups, attribute.String(attrOp, opInsertFixup))
	addIfAny(tm.ops, delta.Deletes, attribute.String(attrOp, opDelete))
	addIfAny(tm.rotations, delta.Rotations)
	addIfAny(tm.swaps, delta.Swaps)
	addIfAny(tm.fixupCases, delta.RedSibling, attribute.String(attrCase, caseRedSibling))
	addIfAny(tm.fixupCases, delta.BlackNephews, attribute.String(attrCase, caseBlackNephews))
	addIfAny(tm.fixupCases, delta.NearRedNephew, attribute.String(attrCase, caseNearRedNephew))
	addIfAny(tm.fixupCases, delta.FarRedNephew, attribute.String(attrCase, caseFarRedNephew))
}

// ObserveShape records the height and size of one shard.
func (tm *TreeMetrics) ObserveShape(ctx context.Context, shard, height, size int) {
	attrs := metric.WithAttributes(attribute.Int(attrShard, shard))

	tm.height.Record(ctx, int64(height), attrs)
	tm.nodes.Record(ctx, int64(size), attrs)
}
