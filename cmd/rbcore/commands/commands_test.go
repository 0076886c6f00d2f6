package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbcore/pkg/config"
	"github.com/Sumatoshi-tech/rbcore/pkg/observability"
	"github.com/Sumatoshi-tech/rbcore/pkg/scenario"
)

func TestMain(m *testing.M) {
	color.NoColor = true

	os.Exit(m.Run())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func writeConfig(t *testing.T, extra string) string {
	t.Helper()

	return writeFile(t, "rbcore.yaml", "logging:\n  level: error\n"+extra)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rbcore "))
}

func TestRunCommandPasses(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "ok.yaml", `name: ok
steps:
  - op: insert
    keys: [3, 1, 2]
  - op: expect
    keys: [1, 2, 3]
  - op: dump
  - op: drain
  - op: empty
`)

	out, err := execute(t, "--config", writeConfig(t, ""), "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS ok: 5 steps, 3 inserted (0 duplicate), 3 deleted (0 absent)")
	assert.Contains(t, out, "2 (BLACK)")
}

func TestRunCommandUsesPathAsName(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "anon.yaml", "steps:\n  - op: empty\n")

	out, err := execute(t, "--config", writeConfig(t, ""), "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS "+path)
}

func TestRunCommandFails(t *testing.T) {
	t.Parallel()

	bad := writeFile(t, "bad.yaml", `name: bad
steps:
  - op: insert
    keys: [1]
  - op: expect
    keys: [2]
`)
	good := writeFile(t, "good.yaml", "name: good\nsteps:\n  - op: verify\n")

	out, err := execute(t, "--config", writeConfig(t, ""), "run", bad, good)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrScenarioFailed)
	require.ErrorIs(t, err, scenario.ErrExpectation)
	assert.Contains(t, out, "FAIL bad")
	assert.Contains(t, out, "PASS good")
}

func TestRunCommandQuiet(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "q.yaml", "steps:\n  - op: insert\n    keys: [1]\n  - op: dump\n")

	out, err := execute(t, "--config", writeConfig(t, ""), "--quiet", "run", path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCommandInvalidDocument(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "invalid.yaml", "steps:\n  - op: rotate\n")

	_, err := execute(t, "--config", writeConfig(t, ""), "run", path)
	require.ErrorIs(t, err, scenario.ErrInvalidDocument)
}

func TestRunCommandRequiresFile(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "run")
	require.Error(t, err)
}

func TestRunCommandBadConfig(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "ok.yaml", "steps:\n  - op: empty\n")

	_, err := execute(t, "--config", writeFile(t, "c.yaml", "logging:\n  level: loud\n"), "run", path)
	require.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestDemoCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "--config", writeConfig(t, ""), "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "# after initial build")
	assert.Contains(t, out, "PASS demo:")
	assert.Contains(t, out, "16 inserted (2 duplicate), 16 deleted (1 absent)")
}

func TestDemoCommandNoDump(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "--config", writeConfig(t, ""), "demo", "--no-dump")
	require.NoError(t, err)
	assert.NotContains(t, out, "(BLACK)")
	assert.Contains(t, out, "PASS demo:")
}

func TestDemoCommandYAML(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "demo", "--yaml")
	require.NoError(t, err)

	doc, err := scenario.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, scenario.Builtin(), doc)
}

func TestBenchCommand(t *testing.T) {
	t.Parallel()

	chart := filepath.Join(t.TempDir(), "chart.html")

	out, err := execute(t, "--config", writeConfig(t, ""), "bench",
		"--keys", "300", "--ops", "3000", "--shards", "3", "--samples", "10", "--hibernate", "--chart", chart)
	require.NoError(t, err)

	assert.Contains(t, out, "Workload")
	assert.Contains(t, out, "Shards")
	assert.Contains(t, out, "hibernated")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "rbcore bench")
}

func TestBenchCommandConfigFallback(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "bench:\n  keys: 50\n  ops: 400\n  seed: 9\narena:\n  shards: 2\n")

	bc := &BenchCommand{}
	cmd := NewBenchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--ops", "100"}))

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)

	bc.ops = 100
	require.NoError(t, bc.applyConfig(cmd, cfg))

	assert.Equal(t, 50, bc.keys)
	assert.Equal(t, 100, bc.ops)
	assert.Equal(t, int64(9), bc.seed)
	assert.Equal(t, 2, bc.shards)
	assert.InDelta(t, config.DefaultBenchDeleteRatio, bc.deleteRatio, 1e-9)
}

func TestBenchCommandRejectsFlags(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "--config", writeConfig(t, ""), "bench", "--ops", "10", "--delete-ratio", "2")
	require.ErrorIs(t, err, config.ErrInvalidDeleteRatio)

	_, err = execute(t, "--config", writeConfig(t, ""), "bench", "--ops", "10", "--shards", "0")
	require.ErrorIs(t, err, config.ErrInvalidShards)
}

func TestRunBench(t *testing.T) {
	t.Parallel()

	params := benchParams{Keys: 500, Ops: 5000, Seed: 3, DeleteRatio: 0.45, Shards: 4, Samples: 20}

	result, err := runBench(context.Background(), params, nil)
	require.NoError(t, err)

	assert.Equal(t, params.Ops, result.Inserted+result.Duplicates+result.Deleted+result.Missing)
	assert.Equal(t, result.Inserted-result.Deleted, result.size())
	assert.Len(t, result.Samples, params.Samples)
	assert.Len(t, result.Shards, params.Shards)
	assert.Equal(t, uint64(result.Deleted), result.Stats.Deletes)

	for _, sample := range result.Samples {
		assert.LessOrEqual(t, float64(sample.Height), sample.Bound)
	}

	for _, shape := range result.Shards {
		assert.LessOrEqual(t, float64(shape.Height), shape.Bound)
		assert.GreaterOrEqual(t, shape.Slots, shape.Size)
	}

	assert.Zero(t, result.HibernatedBytes)
}

func TestRunBenchIsDeterministic(t *testing.T) {
	t.Parallel()

	params := benchParams{Keys: 100, Ops: 1000, Seed: 42, DeleteRatio: 0.3, Shards: 2}

	first, err := runBench(context.Background(), params, nil)
	require.NoError(t, err)

	second, err := runBench(context.Background(), params, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Shards, second.Shards)
	assert.Equal(t, first.Stats, second.Stats)
}

func TestRunBenchHibernate(t *testing.T) {
	t.Parallel()

	params := benchParams{Keys: 1000, Ops: 4000, Seed: 5, DeleteRatio: 0.2, Shards: 2, Hibernate: true}

	result, err := runBench(context.Background(), params, nil)
	require.NoError(t, err)
	assert.Positive(t, result.HibernatedBytes)
	assert.Equal(t, 2, result.HibernatedShards)
}

func TestRunBenchHibernateBelowThreshold(t *testing.T) {
	t.Parallel()

	params := benchParams{
		Keys: 1000, Ops: 4000, Seed: 5, DeleteRatio: 0.2, Shards: 2,
		Threshold: 1_000_000, Hibernate: true,
	}

	result, err := runBench(context.Background(), params, nil)
	require.NoError(t, err)
	assert.Zero(t, result.HibernatedShards)
	assert.Zero(t, result.HibernatedBytes)
}

func TestMetricsServer(t *testing.T) {
	t.Parallel()

	server, err := startMetricsServer("127.0.0.1:0")
	require.NoError(t, err)

	defer server.close(func(string, ...any) {})

	metrics, err := observability.NewTreeMetrics(server.meter)
	require.NoError(t, err)

	_, err = runBench(context.Background(), benchParams{Keys: 50, Ops: 200, Seed: 1, DeleteRatio: 0.3, Shards: 1}, metrics)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+server.addr+"/metrics", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rbcore_rotations")
}
