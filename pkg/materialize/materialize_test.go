package materialize

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordoc/arbordoc/pkg/oracle"
	"github.com/arbordoc/arbordoc/pkg/render"
	"github.com/arbordoc/arbordoc/pkg/tree"
)

// refusingOracle fails the test if the materializer queries it.
type refusingOracle struct{ t *testing.T }

func (o *refusingOracle) GenerateStructured(context.Context, string, oracle.StructuredOptions) (map[string]any, error) {
	o.t.Fatal("unexpected oracle call")
	return nil, nil
}

// failingOracle returns the same error on every structured call.
type failingOracle struct{ err error }

func (o *failingOracle) GenerateStructured(context.Context, string, oracle.StructuredOptions) (map[string]any, error) {
	return nil, o.err
}

// threeLevelTree is Alpha/Beta/Gamma with no planned files, so the
// populate pass has to ask the oracle for the level-3 folder.
func threeLevelTree() *tree.Node {
	return tree.Decode(map[string]any{
		"folders": map[string]any{
			"Alpha": map[string]any{
				"description": "first tier",
				"folders": map[string]any{
					"Beta": map[string]any{
						"description": "second tier",
						"folders": map[string]any{
							"Gamma": map[string]any{"description": "third tier"},
						},
					},
				},
			},
		},
	})
}

func newMaterializer(req tree.Request) *Materializer {
	return &Materializer{
		Request:   req,
		Renderers: render.NewRegistry(nil),
		Rand:      rand.New(rand.NewSource(1)),
	}
}

func countDirEntries(t *testing.T, dir string, dirsOnly bool) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.Name() == SidecarName {
			continue
		}
		if dirsOnly == e.IsDir() {
			n++
		}
	}
	return n
}

func TestRunCreatesTreeWithSidecars(t *testing.T) {
	root := tree.Decode(map[string]any{
		"folders": map[string]any{
			"Alpha": map[string]any{
				"description": "first tier",
				"folders": map[string]any{
					"Beta": map[string]any{
						"description": "second tier",
						"folders": map[string]any{
							"Gamma": map[string]any{
								"description": "third tier",
								"files": []any{
									map[string]any{"name": "report.txt", "type": "txt", "description": "annual report"},
								},
							},
						},
					},
				},
			},
		},
	})

	out := filepath.Join(t.TempDir(), "out")
	req := tree.Request{
		Industry: "Healthcare",
		Language: "en-US",
		Role:     "nurse",
		Dates:    tree.DateRange{Start: "2024-01-01", End: "2024-12-31"},
	}
	m := newMaterializer(req)
	require.NoError(t, m.Run(context.Background(), root, out))

	gamma := filepath.Join(out, "Alpha", "Beta", "Gamma")
	require.DirExists(t, gamma)

	rootSC, ok := ReadSidecar(out)
	require.True(t, ok)
	assert.Equal(t, "Healthcare", rootSC.Industry)
	assert.Equal(t, "en-US", rootSC.Language)
	assert.Equal(t, "nurse", rootSC.Role)
	assert.Equal(t, "2024-01-01", rootSC.DateStart)
	assert.Contains(t, rootSC.Folders, "Alpha")

	betaSC, ok := ReadSidecar(filepath.Join(out, "Alpha", "Beta"))
	require.True(t, ok)
	assert.Equal(t, "Alpha", betaSC.ParentFolder)
	assert.Equal(t, "second tier", betaSC.Description)

	// Level 3 keeps its planned file count unchanged.
	data, err := os.ReadFile(filepath.Join(gamma, "report.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "annual report")

	gammaSC, ok := ReadSidecar(gamma)
	require.True(t, ok)
	names := make([]string, 0, len(gammaSC.Files))
	for _, f := range gammaSC.Files {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "report.txt")
}

func TestRunIsIdempotent(t *testing.T) {
	root := tree.Decode(map[string]any{
		"folders": map[string]any{
			"Alpha": map[string]any{"description": "first tier"},
		},
	})
	out := filepath.Join(t.TempDir(), "out")
	m := newMaterializer(tree.Request{Industry: "Retail", Language: "en-US"})
	require.NoError(t, m.Run(context.Background(), root, out))
	require.NoError(t, m.Run(context.Background(), root, out), "re-running over existing output must succeed")
}

func TestFileCountDistribution(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	const samples = 20000

	counts := map[int]int{}
	for i := 0; i < samples; i++ {
		counts[FileCount(1, 5, r)]++
	}
	assert.InDelta(t, 0.94, float64(counts[0])/samples, 0.01)
	assert.InDelta(t, 0.04, float64(counts[1])/samples, 0.01)
	assert.InDelta(t, 0.02, float64(counts[2])/samples, 0.01)

	counts = map[int]int{}
	for i := 0; i < samples; i++ {
		counts[FileCount(2, 5, r)]++
	}
	assert.InDelta(t, 0.80, float64(counts[0])/samples, 0.01)
	assert.InDelta(t, 0.15, float64(counts[1]+counts[2])/samples, 0.01)
	assert.InDelta(t, 0.05, float64(counts[5])/samples, 0.01)

	assert.Equal(t, 4, FileCount(3, 4, r), "deep levels keep the requested count")
	assert.Equal(t, 7, FileCount(5, 7, r))
}

func TestUniqueNameEscalation(t *testing.T) {
	dir := t.TempDir()
	r := rand.New(rand.NewSource(1))

	assert.Equal(t, "a.txt", UniqueName(dir, "a.txt", r))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	assert.Equal(t, "a_1.txt", UniqueName(dir, "a.txt", r))

	for i := 1; i <= 99; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, UniqueName(dir, "a.txt", r)), nil, 0o644))
	}
	random := UniqueName(dir, "a.txt", r)
	assert.Regexp(t, `^a_[a-z]{5}\.txt$`, random)
}

func TestShortModeFolderCap(t *testing.T) {
	obj := map[string]any{"folders": map[string]any{}}
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O"} {
		obj["folders"].(map[string]any)[name] = map[string]any{"description": "d"}
	}
	root := tree.Decode(obj)

	out := filepath.Join(t.TempDir(), "out")
	m := newMaterializer(tree.Request{Industry: "Retail", Language: "en-US"})
	m.Governor = NewGovernor(false)

	err := m.Run(context.Background(), root, out)
	require.ErrorIs(t, err, ErrLimitReached)
	assert.Equal(t, DefaultShortModeLimit, countDirEntries(t, out, true),
		"exactly the limit of folders must exist")
}

func TestShortModeFileCap(t *testing.T) {
	files := make([]any, 0, 15)
	for i := 0; i < 15; i++ {
		files = append(files, map[string]any{"name": string(rune('a'+i)) + ".txt", "type": "txt"})
	}
	root := tree.Decode(map[string]any{
		"folders": map[string]any{
			"A": map[string]any{
				"description": "d",
				"folders": map[string]any{
					"B": map[string]any{
						"description": "d",
						"folders": map[string]any{
							"C": map[string]any{"description": "d", "files": files},
						},
					},
				},
			},
		},
	})

	out := filepath.Join(t.TempDir(), "out")
	m := newMaterializer(tree.Request{Industry: "Retail", Language: "en-US"})
	m.Governor = NewGovernor(false)

	err := m.Run(context.Background(), root, out)
	require.ErrorIs(t, err, ErrLimitReached)

	total := 0
	for _, dir := range []string{
		filepath.Join(out, "A"),
		filepath.Join(out, "A", "B"),
		filepath.Join(out, "A", "B", "C"),
	} {
		total += countDirEntries(t, dir, false)
	}
	assert.Equal(t, DefaultShortModeLimit, total, "exactly the limit of files must exist")
}

func TestRunTransportFailureAborts(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	m := newMaterializer(tree.Request{Industry: "Retail", Language: "en-US"})
	transportErr := errors.New("request failed after 3 attempts: connection refused")
	m.Oracle = &failingOracle{err: transportErr}

	err := m.Run(context.Background(), threeLevelTree(), out)
	require.Error(t, err, "an unreachable oracle must end the run, not silently skip files")
	assert.ErrorIs(t, err, transportErr)
}

func TestRunExhaustedOracleUsesFallbackNames(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	m := newMaterializer(tree.Request{Industry: "Retail", Language: "en-US"})
	m.Oracle = &failingOracle{err: oracle.ErrExhausted}

	require.NoError(t, m.Run(context.Background(), threeLevelTree(), out),
		"an oracle that answers but never produces a usable list degrades to fallback names")

	leaf := filepath.Join(out, "Alpha", "Beta", "Gamma")
	entries, err := os.ReadDir(leaf)
	require.NoError(t, err)
	files := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == SidecarName {
			continue
		}
		assert.Regexp(t, `^document_\d+\.txt$`, e.Name())
		files++
	}
	assert.Greater(t, files, 0, "fallback files must still be created")
}

func TestTimeseriesSiblingLimitWarnsOnly(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	children := map[string]any{}
	for i := 0; i < MaxTimeseriesSiblings+2; i++ {
		children[fmt.Sprintf("Series %d", i)] = map[string]any{
			"description": "dated records",
			"purpose":     "timeseries",
		}
	}
	root := tree.Decode(map[string]any{
		"folders": map[string]any{
			"Operations": map[string]any{
				"description": "daily operations",
				"folders":     children,
			},
		},
	})

	out := filepath.Join(t.TempDir(), "out")
	m := newMaterializer(tree.Request{Industry: "Retail", Language: "en-US"})
	m.StructureOnly = true
	require.NoError(t, m.Run(context.Background(), root, out),
		"the timeseries sibling limit is advisory and must not fail the run")

	assert.Equal(t, MaxTimeseriesSiblings+2,
		countDirEntries(t, filepath.Join(out, "Operations"), true),
		"every sibling past the limit is still created")

	warned := false
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "timeseries subfolders") {
			warned = true
		}
	}
	assert.True(t, warned, "exceeding the limit must be logged as a warning")
}

func TestGovernorFilesOnlyMode(t *testing.T) {
	g := NewGovernor(true)
	for i := 0; i < 50; i++ {
		require.NoError(t, g.AllowFolder(), "folder limit is off in files-only mode")
	}
	for i := 0; i < DefaultShortModeLimit; i++ {
		require.NoError(t, g.AllowFile())
	}
	require.ErrorIs(t, g.AllowFile(), ErrLimitReached)
}

func TestRunFilesOnlyResume(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	reports := filepath.Join(out, "Reports")
	require.NoError(t, os.MkdirAll(reports, 0o755))

	require.NoError(t, WriteSidecar(out, Sidecar{Name: "out", Industry: "Retail", Language: "en-US"}))
	require.NoError(t, WriteSidecar(reports, Sidecar{
		Name:        "Reports",
		Description: "periodic reports",
		Industry:    "Retail",
		Files: []SidecarFile{
			{Name: "kept.txt", Type: "txt", Description: "already there"},
			{Name: "missing.txt", Type: "txt", Description: "to be created"},
		},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(reports, "kept.txt"), []byte("original\n"), 0o644))

	m := newMaterializer(tree.Request{Industry: "Retail", Language: "en-US"})
	m.Oracle = &refusingOracle{t}
	require.NoError(t, m.RunFilesOnly(context.Background(), out))

	data, err := os.ReadFile(filepath.Join(reports, "kept.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data), "existing files are untouched")
	assert.FileExists(t, filepath.Join(reports, "missing.txt"))
}

func TestTimeseriesName(t *testing.T) {
	dates := tree.DateRange{Start: "2024-01-01", End: "2024-12-31"}

	assert.Equal(t, "2024-03-01_log.txt", TimeseriesName("2024-03-01_log.txt", dates, 0, 4),
		"dated names pass through")

	first := TimeseriesName("log.txt", dates, 0, 3)
	last := TimeseriesName("log.txt", dates, 2, 3)
	assert.Equal(t, "2024-01-01_log.txt", first)
	assert.Equal(t, "2024-12-31_log.txt", last)

	assert.Equal(t, "log.txt", TimeseriesName("log.txt", tree.DateRange{}, 0, 3),
		"no range means no prefix")
}
