// Package materialize turns a validated folder tree into directories,
// files, and metadata sidecars on disk. It is the only writer of the
// output tree; everything it does is idempotent so interrupted runs can
// be resumed.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arbordoc/arbordoc/pkg/fsutil"
	"github.com/arbordoc/arbordoc/pkg/locale"
	"github.com/arbordoc/arbordoc/pkg/oracle"
	"github.com/arbordoc/arbordoc/pkg/render"
	"github.com/arbordoc/arbordoc/pkg/stats"
	"github.com/arbordoc/arbordoc/pkg/tree"
)

const (
	DefaultMinDepth = 1
	DefaultMaxDepth = 3
)

// Materializer walks a tree and writes it to disk. Zero-value depth
// fields and randomness get defaults; Oracle, Tracker, and Governor may
// be nil (fallback naming, no bookkeeping, no limits).
type Materializer struct {
	Request   tree.Request
	Oracle    oracle.Generator
	Renderers *render.Registry
	Tracker   *stats.Tracker
	Governor  *Governor
	Rand      *rand.Rand

	MinDepth            int
	MaxDepth            int
	ExceedMaxDepthFiles bool

	// StructureOnly stops after directories and sidecars, skipping the
	// populate pass entirely.
	StructureOnly bool
}

type populateEntry struct {
	path  string
	depth int
	node  *tree.Node
}

func (m *Materializer) defaults() {
	if m.MinDepth <= 0 {
		m.MinDepth = DefaultMinDepth
	}
	if m.MaxDepth <= 0 {
		m.MaxDepth = DefaultMaxDepth
	}
	if m.Rand == nil {
		m.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// Run materializes the whole tree under rootPath: first the directory
// structure with sidecars, then the populate pass that creates files.
// ErrLimitReached unwinds cleanly and leaves partial output in place.
func (m *Materializer) Run(ctx context.Context, root *tree.Node, rootPath string) error {
	m.defaults()
	if err := fsutil.EnsureDirectory(rootPath); err != nil {
		return fmt.Errorf("output root: %w", err)
	}

	var entries []populateEntry
	seen := map[string]bool{}
	if err := m.walk(root, rootPath, 0, "", "", &entries, seen); err != nil {
		return err
	}
	if m.StructureOnly {
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.populate(ctx, entry, false); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materializer) walk(node *tree.Node, path string, depth int, parent, grandparent string, entries *[]populateEntry, seen map[string]bool) error {
	if depth > 0 {
		if err := m.Governor.AllowFolder(); err != nil {
			return err
		}
		if err := fsutil.EnsureDirectory(path); err != nil {
			logrus.Errorf("skipping subtree %s: %v", path, err)
			return nil
		}
		m.Tracker.Record(stats.KindFolder, path, 0)
	}

	sc := sidecarFromNode(node, parent, grandparent, m.Request, depth == 0)
	if err := WriteSidecar(path, sc); err != nil {
		logrus.Warnf("could not write metadata for %s: %v", path, err)
	} else {
		m.Tracker.Record(stats.KindSidecar, filepath.Join(path, SidecarName), 0)
	}

	if depth >= m.MinDepth && (depth <= m.MaxDepth || m.ExceedMaxDepthFiles) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if !seen[abs] {
			seen[abs] = true
			*entries = append(*entries, populateEntry{path: path, depth: depth, node: node})
		}
	}

	timeseries := 0
	for _, name := range sortedNames(node.Folders) {
		if node.Folders[name].Timeseries() {
			timeseries++
		}
	}
	warnTimeseries(node.Name, timeseries)

	if depth >= m.MaxDepth && !(depth == m.MaxDepth && m.ExceedMaxDepthFiles) {
		return nil
	}
	for _, name := range sortedNames(node.Folders) {
		childPath := filepath.Join(path, fsutil.SanitizeName(name))
		if err := m.walk(node.Folders[name], childPath, depth+1, node.Name, parent, entries, seen); err != nil {
			return err
		}
	}
	return nil
}

// populate creates the files of one folder. With skipExisting set (the
// files-only pass) sidecar-recorded files are honored as-is and files
// already on disk are left alone.
func (m *Materializer) populate(ctx context.Context, entry populateEntry, skipExisting bool) error {
	node := entry.node

	var specs []tree.FileSpec
	var err error
	switch {
	case skipExisting && len(node.Files) > 0:
		specs = node.Files
	case node.Timeseries():
		specs = node.Files
		if len(specs) == 0 {
			specs, err = m.requestFiles(ctx, node, entry.depth, DefaultRequest(m.Rand))
		}
	default:
		requested := len(node.Files)
		if requested == 0 {
			requested = DefaultRequest(m.Rand)
		}
		count := FileCount(entry.depth, requested, m.Rand)
		if count <= len(node.Files) {
			specs = node.Files[:count]
		} else {
			var extra []tree.FileSpec
			extra, err = m.requestFiles(ctx, node, entry.depth, count-len(node.Files))
			specs = append(append([]tree.FileSpec{}, node.Files...), extra...)
		}
	}
	if err != nil {
		return err
	}

	var created []SidecarFile
	defer func() {
		if len(created) == 0 {
			return
		}
		if err := AppendSidecarFiles(entry.path, created); err != nil {
			logrus.Warnf("could not update metadata for %s: %v", entry.path, err)
		}
	}()

	for i, spec := range specs {
		name := fsutil.SanitizeName(spec.Name)
		if name == "" {
			continue
		}
		if node.Timeseries() {
			name = TimeseriesName(name, m.Request.Dates, i, len(specs))
		}
		if skipExisting && fsutil.Exists(filepath.Join(entry.path, name)) {
			continue
		}
		if err := m.Governor.AllowFile(); err != nil {
			return err
		}

		final := UniqueName(entry.path, name, m.Rand)
		job := render.Job{
			Dir:         entry.path,
			Filename:    final,
			Description: spec.Description,
			Industry:    m.Request.Industry,
			Language:    m.Request.Language,
			Role:        m.Request.Role,
			Purpose:     node.Purpose,
		}
		start := time.Now()
		if err := m.Renderers.For(final).Render(ctx, job); err != nil {
			logrus.Warnf("could not render %s: %v", filepath.Join(entry.path, final), err)
			continue
		}
		m.Tracker.Record(stats.KindFile, filepath.Join(entry.path, final), time.Since(start))
		created = append(created, SidecarFile{Name: final, Type: spec.Type, Description: spec.Description})
	}
	return nil
}

// requestFiles asks the oracle for count file entries for a folder,
// falling back to generic names when it answers but cannot produce a
// usable list. Any failure to get an answer at all ends the run.
func (m *Materializer) requestFiles(ctx context.Context, node *tree.Node, level, count int) ([]tree.FileSpec, error) {
	if count <= 0 {
		return nil, nil
	}
	if m.Oracle == nil {
		return fallbackFiles(node, count), nil
	}
	template, err := locale.Get("file_generation_prompts.random_files_prompt", m.Request.Language)
	if err != nil {
		logrus.Warnf("%v", err)
		return fallbackFiles(node, count), nil
	}
	folderName := node.Name
	if folderName == "" {
		folderName = m.Request.Industry
	}
	prompt := locale.Render(template, map[string]string{
		"count":        fmt.Sprint(count),
		"folder_name":  folderName,
		"industry":     m.Request.Industry,
		"folder_level": fmt.Sprint(level),
	})

	opts := oracle.StructuredOptions{ExpectedKeys: []string{"files"}}
	if clause, err := locale.Get("json_format_instructions.parsing_error_message", m.Request.Language); err == nil {
		opts.ParseErrorClause = clause
	}
	if clause, err := locale.Get("json_format_instructions.structure_error_format", m.Request.Language); err == nil {
		opts.MissingKeysClause = clause
	}

	obj, err := m.Oracle.GenerateStructured(ctx, prompt, opts)
	if err != nil {
		// Only structured-generation exhaustion degrades to fallback
		// names. Transport failures mean the oracle is gone and end
		// the run.
		if !errors.Is(err, oracle.ErrExhausted) {
			return nil, err
		}
		logrus.Warnf("no file list for %q, using fallback names: %v", folderName, err)
		return fallbackFiles(node, count), nil
	}
	specs := tree.DecodeFiles(obj["files"])
	if len(specs) == 0 {
		return fallbackFiles(node, count), nil
	}
	if len(specs) > count {
		specs = specs[:count]
	}
	return specs, nil
}

func fallbackFiles(node *tree.Node, count int) []tree.FileSpec {
	specs := make([]tree.FileSpec, 0, count)
	for i := 1; i <= count; i++ {
		specs = append(specs, tree.FileSpec{
			Name:        fmt.Sprintf("document_%d.txt", i),
			Type:        "txt",
			Description: node.Description,
		})
	}
	return specs
}

// RunFilesOnly resumes file generation over an existing output tree,
// reading sidecars instead of re-querying structure.
func (m *Materializer) RunFilesOnly(ctx context.Context, rootPath string) error {
	m.defaults()
	if !fsutil.Exists(rootPath) {
		return fmt.Errorf("output root %s does not exist", rootPath)
	}
	return m.filesOnlyDir(ctx, rootPath, 0)
}

func (m *Materializer) filesOnlyDir(ctx context.Context, dir string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	node := &tree.Node{Name: filepath.Base(dir), Folders: map[string]*tree.Node{}}
	if sc, ok := ReadSidecar(dir); ok {
		node.Description = sc.Description
		node.Purpose = sc.Purpose
		for _, f := range sc.Files {
			node.Files = append(node.Files, tree.FileSpec(f))
		}
	}

	if depth >= m.MinDepth && (depth <= m.MaxDepth || m.ExceedMaxDepthFiles) {
		if err := m.populate(ctx, populateEntry{path: dir, depth: depth, node: node}, true); err != nil {
			return err
		}
	}
	if depth >= m.MaxDepth && !(depth == m.MaxDepth && m.ExceedMaxDepthFiles) {
		return nil
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		logrus.Errorf("skipping subtree %s: %v", dir, err)
		return nil
	}
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		if err := m.filesOnlyDir(ctx, filepath.Join(dir, child.Name()), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func sortedNames(folders map[string]*tree.Node) []string {
	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
