package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbcore/pkg/observability"
	"github.com/Sumatoshi-tech/rbcore/pkg/scenario"
)

// ErrScenarioFailed is returned when at least one scenario fails.
var ErrScenarioFailed = errors.New("scenario failed")

// RunCommand holds the flags of the run command.
type RunCommand struct {
	verifyEach bool
	noDump     bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Execute scenario files",
		Long: `Execute one or more YAML scenario files against a fresh tree each.

Every file is validated against the scenario schema before it runs. Steps
insert and delete keys, compare the in-order key sequence, verify the
red-black invariants, print the tree, drain it and check that it is empty.`,
		Args: cobra.MinimumNArgs(1),
		RunE: rc.run,
	}

	rc.registerFlags(cmd)

	return cmd
}

func (rc *RunCommand) registerFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&rc.verifyEach, "verify-each", true, "Verify invariants after every mutating step")
	cmd.Flags().BoolVar(&rc.noDump, "no-dump", false, "Skip dump steps output")
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, observability.ModeScenario)
	if err != nil {
		return err
	}
	defer sess.close()

	docs := make([]*scenario.Document, 0, len(args))

	for _, path := range args {
		doc, parseErr := scenario.ParseFile(path)
		if parseErr != nil {
			return parseErr
		}

		if doc.Name == "" {
			doc.Name = path
		}

		docs = append(docs, doc)
	}

	return rc.runDocuments(cmd.Context(), cmd.OutOrStdout(), sess, docs)
}

func (rc *RunCommand) runDocuments(ctx context.Context, writer io.Writer, sess *session, docs []*scenario.Document) error {
	opts := scenario.Options{
		Out:        writer,
		Logger:     sess.providers.Logger,
		Tracer:     sess.providers.Tracer,
		VerifyEach: rc.verifyEach,
	}

	if rc.noDump || sess.quiet {
		opts.Out = io.Discard
	}

	metrics, err := observability.NewTreeMetrics(sess.providers.Meter)
	if err != nil {
		return err
	}

	opts.Metrics = metrics

	var errs []error

	for _, doc := range docs {
		report, runErr := scenario.Run(ctx, doc, opts)
		printReport(writer, sess.quiet, report, runErr)
		sess.providers.Logger.DebugContext(ctx, "scenario finished",
			slog.String("scenario", doc.Name), slog.Int("steps", report.Steps), observability.TreeAttr(report.Stats))

		if runErr != nil {
			sess.providers.Logger.ErrorContext(ctx, "scenario failed", slog.String("scenario", doc.Name), slog.Any("error", runErr))
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrScenarioFailed, doc.Name, runErr))
		}
	}

	return errors.Join(errs...)
}

func printReport(writer io.Writer, quiet bool, report scenario.Report, runErr error) {
	if quiet {
		return
	}

	status := color.GreenString("PASS")
	if runErr != nil {
		status = color.RedString("FAIL")
	}

	fmt.Fprintf(writer, "%s %s: %d steps, %d inserted (%d duplicate), %d deleted (%d absent), %d rotations, %d swaps\n",
		status, report.Name, report.Steps, report.Inserted, report.Duplicates,
		report.Deleted, report.Missing, report.Stats.Rotations, report.Stats.Swaps)

	if runErr != nil {
		fmt.Fprintf(writer, "  %v\n", runErr)
	}
}
