package builder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbordoc/arbordoc/pkg/oracle"
	"github.com/arbordoc/arbordoc/pkg/tree"
)

// scriptedOracle answers structured calls by matching prompt substrings,
// recording every prompt it saw.
type scriptedOracle struct {
	script  func(prompt string) (map[string]any, error)
	prompts []string
}

func (s *scriptedOracle) GenerateStructured(_ context.Context, prompt string, _ oracle.StructuredOptions) (map[string]any, error) {
	s.prompts = append(s.prompts, prompt)
	return s.script(prompt)
}

func folders(entries map[string]map[string]any) map[string]any {
	out := map[string]any{}
	for name, body := range entries {
		out[name] = body
	}
	return map[string]any{"folders": out}
}

var testRequest = tree.Request{
	Industry: "Healthcare",
	Language: "en-US",
	Dates:    tree.DateRange{Start: "2024-01-01", End: "2024-12-31"},
}

func TestBuildFullTree(t *testing.T) {
	fake := &scriptedOracle{script: func(prompt string) (map[string]any, error) {
		switch {
		case strings.Contains(prompt, "root of its shared drive"):
			return folders(map[string]map[string]any{
				"Clinical": {"description": "Patient-facing records"},
				"Finance":  {"description": "Money matters"},
			}), nil
		case strings.Contains(prompt, "final level"):
			return folders(map[string]map[string]any{
				"2024": {"description": "Current year"},
			}), nil
		case strings.Contains(prompt, "files that belong"):
			return map[string]any{"files": []any{
				map[string]any{"name": "overview.txt", "type": "txt", "description": "Overview"},
			}}, nil
		case strings.Contains(prompt, "subfolders"):
			return folders(map[string]map[string]any{
				"Reports": {"description": "Periodic reports"},
			}), nil
		default:
			t.Fatalf("unexpected prompt: %s", prompt)
			return nil, nil
		}
	}}

	root, err := New(fake).Build(context.Background(), testRequest)
	require.NoError(t, err)
	require.Len(t, root.Folders, 2)

	clinical := root.Folders["Clinical"]
	require.NotNil(t, clinical)
	reports := clinical.Folders["Reports"]
	require.NotNil(t, reports)
	assert.Contains(t, reports.Folders, "2024")
	require.Len(t, reports.Files, 1)
	assert.Equal(t, "overview.txt", reports.Files[0].Name)
}

func TestBuildLevel1FailureIsFatal(t *testing.T) {
	fake := &scriptedOracle{script: func(string) (map[string]any, error) {
		return nil, oracle.ErrExhausted
	}}
	_, err := New(fake).Build(context.Background(), testRequest)
	require.Error(t, err)
	assert.ErrorIs(t, err, oracle.ErrExhausted)
}

func TestBuildLevel1RequiresDescriptions(t *testing.T) {
	fake := &scriptedOracle{script: func(string) (map[string]any, error) {
		return folders(map[string]map[string]any{
			"Clinical": {"description": ""},
		}), nil
	}}
	_, err := New(fake).Build(context.Background(), testRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no description")
}

func TestBuildLevel2FailureDegrades(t *testing.T) {
	fake := &scriptedOracle{script: func(prompt string) (map[string]any, error) {
		if strings.Contains(prompt, "root of its shared drive") {
			return folders(map[string]map[string]any{
				"Clinical": {"description": "Patient-facing records"},
				"Finance":  {"description": "Money matters"},
			}), nil
		}
		return nil, oracle.ErrExhausted
	}}

	root, err := New(fake).Build(context.Background(), testRequest)
	require.NoError(t, err, "level-2 exhaustion must not fail the run")
	require.Len(t, root.Folders, 2)
	assert.Empty(t, root.Folders["Clinical"].Folders)
	assert.Empty(t, root.Folders["Finance"].Folders)
}

func TestBuildLevel2TransportFailureIsFatal(t *testing.T) {
	transportErr := errors.New("request failed after 3 attempts: connection refused")
	fake := &scriptedOracle{script: func(prompt string) (map[string]any, error) {
		if strings.Contains(prompt, "root of its shared drive") {
			return folders(map[string]map[string]any{
				"Clinical": {"description": "Patient-facing records"},
			}), nil
		}
		return nil, transportErr
	}}

	_, err := New(fake).Build(context.Background(), testRequest)
	require.Error(t, err, "an unreachable oracle must end the run, not empty the branch")
	assert.ErrorIs(t, err, transportErr)
}

func TestBuildPermanentErrorPropagates(t *testing.T) {
	permanent := oracle.NewPermanentError(assert.AnError)
	fake := &scriptedOracle{script: func(prompt string) (map[string]any, error) {
		if strings.Contains(prompt, "root of its shared drive") {
			return folders(map[string]map[string]any{
				"Clinical": {"description": "Patient-facing records"},
			}), nil
		}
		return nil, permanent
	}}

	_, err := New(fake).Build(context.Background(), testRequest)
	require.Error(t, err)
	assert.True(t, oracle.IsPermanent(err))
}

func TestBuildTimeseriesFolderSkipsChildren(t *testing.T) {
	fake := &scriptedOracle{script: func(prompt string) (map[string]any, error) {
		switch {
		case strings.Contains(prompt, "root of its shared drive"):
			return folders(map[string]map[string]any{
				"Operations": {"description": "Daily operations"},
			}), nil
		case strings.Contains(prompt, "subfolders that organize"):
			return map[string]any{"folders": map[string]any{
				"Daily Logs": map[string]any{
					"description": "One log per day",
					"purpose":     "timeseries",
				},
			}}, nil
		case strings.Contains(prompt, "dated series records"):
			return map[string]any{"files": []any{
				map[string]any{"name": "2024-01-01_log.txt", "type": "txt"},
			}}, nil
		default:
			t.Fatalf("unexpected prompt for timeseries folder: %s", prompt)
			return nil, nil
		}
	}}

	root, err := New(fake).Build(context.Background(), testRequest)
	require.NoError(t, err)

	logs := root.Folders["Operations"].Folders["Daily Logs"]
	require.NotNil(t, logs)
	assert.True(t, logs.Timeseries())
	assert.Empty(t, logs.Folders)
	require.Len(t, logs.Files, 1)
	assert.Equal(t, "2024-01-01_log.txt", logs.Files[0].Name)

	for _, p := range fake.prompts {
		assert.NotContains(t, p, "final level", "timeseries folders must not get a level-3 structure call")
	}
}

func TestBuildResumeSkipsPopulatedNodes(t *testing.T) {
	calls := 0
	fake := &scriptedOracle{script: func(prompt string) (map[string]any, error) {
		calls++
		if strings.Contains(prompt, "root of its shared drive") {
			return folders(map[string]map[string]any{
				"Clinical": {"description": "Patient-facing records"},
			}), nil
		}
		t.Fatalf("unexpected prompt: %s", prompt)
		return nil, nil
	}}

	b := New(fake)
	root, err := b.buildLevel1(context.Background(), testRequest)
	require.NoError(t, err)

	// Simulate a resumed branch: folders and files already known.
	clinical := root.Folders["Clinical"]
	clinical.Folders = map[string]*tree.Node{
		"Reports": {
			Name:        "Reports",
			Description: "Periodic reports",
			Folders:     map[string]*tree.Node{"2023": {Name: "2023"}},
			Files:       []tree.FileSpec{{Name: "kept.txt"}},
		},
	}

	require.NoError(t, b.buildLevel2(context.Background(), testRequest, clinical))
	require.NoError(t, b.buildLevel3(context.Background(), testRequest, clinical, clinical.Folders["Reports"]))
	assert.Equal(t, 1, calls, "populated nodes must not be re-queried")
	assert.Equal(t, "kept.txt", clinical.Folders["Reports"].Files[0].Name)
}

func TestRoleAndDateClauses(t *testing.T) {
	assert.Equal(t, "", RoleText("", "en-US"))
	assert.Contains(t, RoleText("nurse", "en-US"), "nurse")
	assert.Equal(t, "", DateRangeText(tree.DateRange{}, "en-US"))
	assert.Equal(t,
		"Date Range: 2024-01-01 - 2024-12-31",
		DateRangeText(tree.DateRange{Start: "2024-01-01", End: "2024-12-31"}, "en-US"))
}
