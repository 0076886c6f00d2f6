package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/rbcore/pkg/observability"
	"github.com/Sumatoshi-tech/rbcore/pkg/ordmap"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbdebug"
	"github.com/Sumatoshi-tech/rbcore/pkg/rbtree"
)

// Sentinel errors returned by Run.
var (
	ErrExpectation = errors.New("in-order keys differ from expectation")
	ErrInvariant   = errors.New("tree invariant violated")
	ErrNotEmpty    = errors.New("tree is not empty")
	ErrUnknownOp   = errors.New("unknown scenario operation")
)

// Options controls a scenario run. All fields are optional.
type Options struct {
	// Out receives dump output. Nil discards it.
	Out io.Writer
	// Logger receives one debug record per step. Nil means slog.Default().
	Logger *slog.Logger
	// Tracer opens one span per step. Nil disables tracing.
	Tracer trace.Tracer
	// Metrics records the structural counters of every mutating step.
	Metrics *observability.TreeMetrics
	// VerifyEach checks every invariant after each mutating step.
	VerifyEach bool
}

// Report summarizes a finished run.
type Report struct {
	Name       string
	Steps      int
	Inserted   int
	Duplicates int
	Deleted    int
	Missing    int
	Stats      rbtree.Stats
	Final      []int
}

type runner struct {
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	entries *ordmap.Map[int, struct{}]
	report  Report
}

// Run executes doc on a fresh tree. It stops at the first failing step.
func Run(ctx context.Context, doc *Document, opts Options) (Report, error) {
	run := &runner{
		opts:    opts,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
		entries: ordmap.New[int, struct{}](rbtree.NewAllocator()),
		report:  Report{Name: doc.Name},
	}

	if run.opts.Out == nil {
		run.opts.Out = io.Discard
	}

	if run.logger == nil {
		run.logger = slog.Default()
	}

	if run.tracer == nil {
		run.tracer = noop.NewTracerProvider().Tracer("rbcore/scenario")
	}

	for idx, step := range doc.Steps {
		if err := ctx.Err(); err != nil {
			return run.finish(), err
		}

		if err := run.step(ctx, idx, step); err != nil {
			return run.finish(), fmt.Errorf("step %d (%s): %w", idx+1, step.Op, err)
		}

		run.report.Steps++
	}

	return run.finish(), nil
}

func (run *runner) finish() Report {
	run.report.Stats = run.entries.Stats()
	run.report.Final = run.keys()

	return run.report
}

func (run *runner) keys() []int {
	return rbdebug.Collect(run.entries.Tree(), run.entries.Key)
}

func (run *runner) label(nodeIdx rbtree.NodeID) string {
	return strconv.Itoa(run.entries.Key(nodeIdx))
}

func (run *runner) step(ctx context.Context, idx int, step Step) error {
	ctx, span := run.tracer.Start(ctx, "scenario.step", trace.WithAttributes(
		attribute.Int("step.index", idx+1),
		attribute.String("step.op", string(step.Op)),
		attribute.Int("step.keys", len(step.Keys)),
	))
	defer span.End()

	before := run.entries.Stats()

	err := run.apply(step)
	if err == nil && run.opts.VerifyEach && mutates(step.Op) {
		err = run.verify()
	}

	if run.opts.Metrics != nil && mutates(step.Op) {
		run.opts.Metrics.RecordStats(ctx, 0, run.entries.Stats().Sub(before))
		run.opts.Metrics.ObserveShape(ctx, 0, rbdebug.Height(run.entries.Tree()), run.entries.Len())
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	run.logger.DebugContext(ctx, "scenario step",
		"index", idx+1, "op", step.Op, "note", step.Note, "size", run.entries.Len())

	return nil
}

func mutates(op Op) bool {
	return op == OpInsert || op == OpDelete || op == OpDrain
}

func (run *runner) apply(step Step) error {
	switch step.Op {
	case OpInsert:
		for _, key := range step.Keys {
			if run.entries.Insert(key, struct{}{}) {
				run.report.Inserted++
			} else {
				run.report.Duplicates++
			}
		}
	case OpDelete:
		for _, key := range step.Keys {
			if run.entries.Delete(key) {
				run.report.Deleted++
			} else {
				run.report.Missing++
			}
		}
	case OpDrain:
		for root := run.entries.Tree().Root(); root != rbtree.Nil; root = run.entries.Tree().Root() {
			run.entries.Delete(run.entries.Key(root))
			run.report.Deleted++

			if run.opts.VerifyEach {
				if err := run.verify(); err != nil {
					return err
				}
			}
		}
	case OpExpect:
		return run.expect(step.Keys)
	case OpVerify:
		return run.verify()
	case OpDump:
		return run.dump(step.Note)
	case OpEmpty:
		if root := run.entries.Tree().Root(); root != rbtree.Nil {
			return fmt.Errorf("%w: root holds %d, %d keys left", ErrNotEmpty, run.entries.Key(root), run.entries.Len())
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, step.Op)
	}

	return nil
}

func (run *runner) verify() error {
	if err := run.entries.Tree().Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}

	return nil
}

func (run *runner) expect(want []int) error {
	got := run.keys()
	if slices.Equal(got, want) {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrExpectation, DiffKeys(want, got))
}

func (run *runner) dump(note string) error {
	if note != "" {
		if _, err := fmt.Fprintf(run.opts.Out, "# %s\n", note); err != nil {
			return fmt.Errorf("dump: %w", err)
		}
	}

	if err := rbdebug.Fprint(run.opts.Out, run.entries.Tree(), run.label); err != nil {
		return fmt.Errorf("dump: %w", err)
	}

	return nil
}

// DiffKeys renders the difference between two key sequences.
// Keys only in want appear as [-k-], keys only in got as {+k+}.
func DiffKeys(want, got []int) string {
	dmp := diffmatchpatch.New()
	wantText, gotText, lines := dmp.DiffLinesToChars(joinLines(want), joinLines(got))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(wantText, gotText, false), lines)

	var builder strings.Builder

	for _, diff := range diffs {
		for _, key := range strings.Fields(diff.Text) {
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}

			switch diff.Type {
			case diffmatchpatch.DiffDelete:
				builder.WriteString("[-" + key + "-]")
			case diffmatchpatch.DiffInsert:
				builder.WriteString("{+" + key + "+}")
			case diffmatchpatch.DiffEqual:
				builder.WriteString(key)
			}
		}
	}

	return builder.String()
}

func joinLines(keys []int) string {
	var builder strings.Builder

	for _, key := range keys {
		builder.WriteString(strconv.Itoa(key))
		builder.WriteByte('\n')
	}

	return builder.String()
}
