// Package builder drives the level-by-level generation of the folder
// hierarchy. Level 1 must succeed; at deeper levels an unusable response
// only empties its branch, so one bad answer never costs the whole tree.
// Transport failures are different: if the oracle cannot be reached at
// all, the run stops regardless of level.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arbordoc/arbordoc/pkg/locale"
	"github.com/arbordoc/arbordoc/pkg/oracle"
	"github.com/arbordoc/arbordoc/pkg/tree"
)

// Builder generates a three-level folder tree for one request.
type Builder struct {
	gen oracle.Generator
}

// New returns a builder backed by gen.
func New(gen oracle.Generator) *Builder {
	return &Builder{gen: gen}
}

// Build generates the full hierarchy. A level-1 failure is fatal; when
// the oracle answers but the answer stays unusable after every retry,
// level-2 and level-3 leave the affected branch empty and continue.
// Errors reaching the oracle abort the build at any level.
// Nodes that already carry folders or files are not re-queried, which is
// what makes resumed runs cheap.
func (b *Builder) Build(ctx context.Context, req tree.Request) (*tree.Node, error) {
	root, err := b.buildLevel1(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, l1Name := range sortedNames(root.Folders) {
		l1 := root.Folders[l1Name]
		if err := b.buildLevel2(ctx, req, l1); err != nil {
			return nil, err
		}

		for _, l2Name := range sortedNames(l1.Folders) {
			if err := b.buildLevel3(ctx, req, l1, l1.Folders[l2Name]); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

func (b *Builder) buildLevel1(ctx context.Context, req tree.Request) (*tree.Node, error) {
	obj, err := b.ask(ctx, req, "folder_structure_prompt.level1", nil, []string{"folders"})
	if err != nil {
		return nil, fmt.Errorf("top-level structure: %w", err)
	}
	root := tree.Decode(obj)
	if len(root.Folders) == 0 {
		return nil, fmt.Errorf("top-level structure: oracle returned no folders")
	}
	for name, node := range root.Folders {
		if node.Description == "" {
			return nil, fmt.Errorf("top-level structure: folder %q has no description", name)
		}
	}
	return root, nil
}

func (b *Builder) buildLevel2(ctx context.Context, req tree.Request, l1 *tree.Node) error {
	if skipChildren(l1, 2) {
		return nil
	}
	obj, err := b.ask(ctx, req, "folder_structure_prompt.level2", map[string]string{
		"l1_folder_name": l1.Name,
		"l1_description": l1.Description,
	}, []string{"folders"})
	if err != nil {
		if !errors.Is(err, oracle.ErrExhausted) {
			return err
		}
		logrus.Warnf("no subfolders generated for %q, continuing: %v", l1.Name, err)
		return nil
	}
	l1.Folders = tree.Decode(obj).Folders
	return nil
}

func (b *Builder) buildLevel3(ctx context.Context, req tree.Request, l1, l2 *tree.Node) error {
	if l2.Timeseries() {
		return b.buildTimeseriesFiles(ctx, req, l2)
	}
	if !skipChildren(l2, 3) {
		obj, err := b.ask(ctx, req, "folder_structure_prompt.level3", map[string]string{
			"l1_folder_name": l1.Name,
			"l1_description": l1.Description,
			"l2_folder_name": l2.Name,
			"l2_description": l2.Description,
		}, []string{"folders"})
		if err != nil {
			if !errors.Is(err, oracle.ErrExhausted) {
				return err
			}
			logrus.Warnf("no subfolders generated for %q/%q, continuing: %v", l1.Name, l2.Name, err)
		} else {
			l2.Folders = tree.Decode(obj).Folders
		}
	}

	if len(l2.Files) > 0 {
		return nil
	}
	obj, err := b.ask(ctx, req, "folder_structure_prompt.level3_files_prompt", map[string]string{
		"l1_folder_name":   l1.Name,
		"l1_description":   l1.Description,
		"l2_folder_name":   l2.Name,
		"l2_description":   l2.Description,
		"industry_info":    "",
		"folder_structure": folderList(l2),
	}, []string{"files"})
	if err != nil {
		if !errors.Is(err, oracle.ErrExhausted) {
			return err
		}
		logrus.Warnf("no files generated for %q/%q, continuing: %v", l1.Name, l2.Name, err)
		return nil
	}
	l2.Files = tree.DecodeFiles(obj["files"])
	return nil
}

func (b *Builder) buildTimeseriesFiles(ctx context.Context, req tree.Request, node *tree.Node) error {
	if len(node.Files) > 0 {
		return nil
	}
	obj, err := b.ask(ctx, req, "folder_structure_prompt.timeseries_files_prompt", map[string]string{
		"folder_name":        node.Name,
		"folder_description": node.Description,
		"language":           req.Language,
	}, []string{"files"})
	if err != nil {
		if !errors.Is(err, oracle.ErrExhausted) {
			return err
		}
		logrus.Warnf("no timeseries files generated for %q, continuing: %v", node.Name, err)
		return nil
	}
	node.Files = tree.DecodeFiles(obj["files"])
	return nil
}

// ask renders the localized template for key, merges in the request-level
// placeholders, and runs one structured generation.
func (b *Builder) ask(ctx context.Context, req tree.Request, key string, vars map[string]string, expectedKeys []string) (map[string]any, error) {
	template, err := locale.Get(key, req.Language)
	if err != nil {
		return nil, err
	}
	merged := requestVars(req)
	for k, v := range vars {
		merged[k] = v
	}
	prompt := locale.Render(template, merged)

	opts := oracle.StructuredOptions{ExpectedKeys: expectedKeys}
	if clause, err := locale.Get("json_format_instructions.parsing_error_message", req.Language); err == nil {
		opts.ParseErrorClause = clause
	}
	if clause, err := locale.Get("json_format_instructions.structure_error_format", req.Language); err == nil {
		opts.MissingKeysClause = clause
	}
	return b.gen.GenerateStructured(ctx, prompt, opts)
}

func requestVars(req tree.Request) map[string]string {
	return map[string]string{
		"industry":   req.Industry,
		"role_text":  RoleText(req.Role, req.Language),
		"date_range": DateRangeText(req.Dates, req.Language),
	}
}

// RoleText renders the localized role clause, empty when no role is set.
func RoleText(role, lang string) string {
	if strings.TrimSpace(role) == "" {
		return ""
	}
	template, err := locale.Get("role_format", lang)
	if err != nil {
		return " for a " + role
	}
	return locale.Render(template, map[string]string{"role": role})
}

// DateRangeText renders the localized date range clause, empty when no
// range is set.
func DateRangeText(dates tree.DateRange, lang string) string {
	if dates.Start == "" || dates.End == "" {
		return ""
	}
	template, err := locale.Get("date_range_format", lang)
	if err != nil {
		return fmt.Sprintf("Date Range: %s - %s", dates.Start, dates.End)
	}
	return locale.Render(template, map[string]string{
		"start_date": dates.Start,
		"end_date":   dates.End,
	})
}

// skipChildren reports whether child generation should be skipped for a
// node: timeseries folders stay flat, and already-populated nodes are
// resumed, not re-queried.
func skipChildren(node *tree.Node, level int) bool {
	if node.Timeseries() {
		logrus.Debugf("folder %q holds series data, skipping level %d generation", node.Name, level)
		return true
	}
	if len(node.Folders) > 0 {
		logrus.Debugf("folder %q already has subfolders, skipping level %d generation", node.Name, level)
		return true
	}
	return false
}

func sortedNames(folders map[string]*tree.Node) []string {
	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func folderList(node *tree.Node) string {
	if len(node.Folders) == 0 {
		return "[]"
	}
	names := sortedNames(node.Folders)
	for i, name := range names {
		names[i] = fmt.Sprintf("%q", name)
	}
	return "[" + strings.Join(names, ", ") + "]"
}
