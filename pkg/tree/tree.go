package tree

import (
	"fmt"
	"sort"
	"strings"
)

// PurposeTimeseries marks folders that hold dated series data. They get
// date-prefixed filenames and no generated subfolders.
const PurposeTimeseries = "timeseries"

// FileSpec describes one file to materialize inside a folder.
type FileSpec struct {
	Name        string
	Type        string
	Description string
}

// Node is a folder in the generated hierarchy. The root node has an empty
// Name and carries the top-level folders.
type Node struct {
	Name        string
	Description string
	Purpose     string
	Folders     map[string]*Node
	Files       []FileSpec
}

// DateRange bounds timeseries filenames, in YYYY-MM-DD form.
type DateRange struct {
	Start string
	End   string
}

// Request captures the user-facing parameters of one generation run.
type Request struct {
	Industry string
	Language string
	Role     string
	Dates    DateRange
}

// Timeseries reports whether the node was tagged as series data.
func (n *Node) Timeseries() bool {
	return strings.EqualFold(strings.TrimSpace(n.Purpose), PurposeTimeseries)
}

// Decode builds a typed node from a normalized oracle object. Unknown keys
// are ignored; files may arrive as a list of entries or as a name-keyed map.
func Decode(obj map[string]any) *Node {
	return decodeNode("", obj)
}

func decodeNode(name string, obj map[string]any) *Node {
	node := &Node{
		Name:        name,
		Description: stringField(obj, "description"),
		Purpose:     stringField(obj, "purpose"),
		Folders:     map[string]*Node{},
	}
	if folders, ok := obj["folders"].(map[string]any); ok {
		for childName, raw := range folders {
			child, ok := raw.(map[string]any)
			if !ok {
				child = map[string]any{}
			}
			node.Folders[childName] = decodeNode(childName, child)
		}
	}
	node.Files = DecodeFiles(obj["files"])
	return node
}

// DecodeFiles accepts the file-list shapes the oracle produces: a list of
// entry objects, a list of bare name strings, or a name-keyed map.
func DecodeFiles(v any) []FileSpec {
	switch files := v.(type) {
	case []any:
		specs := make([]FileSpec, 0, len(files))
		for _, raw := range files {
			switch entry := raw.(type) {
			case string:
				specs = append(specs, FileSpec{Name: entry})
			case map[string]any:
				spec := decodeFileEntry("", entry)
				if spec.Name != "" {
					specs = append(specs, spec)
				}
			}
		}
		return specs
	case map[string]any:
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)
		specs := make([]FileSpec, 0, len(files))
		for _, name := range names {
			entry, _ := files[name].(map[string]any)
			specs = append(specs, decodeFileEntry(name, entry))
		}
		return specs
	default:
		return nil
	}
}

func decodeFileEntry(name string, entry map[string]any) FileSpec {
	spec := FileSpec{
		Name:        name,
		Type:        stringField(entry, "type"),
		Description: stringField(entry, "description"),
	}
	if spec.Name == "" {
		spec.Name = stringField(entry, "name")
	}
	if spec.Name == "" {
		spec.Name = stringField(entry, "file_name")
	}
	return spec
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

// Format renders the hierarchy as an indented listing, folders before
// files, both sorted by name.
func Format(root *Node) string {
	var b strings.Builder
	formatNode(&b, root, 0)
	return b.String()
}

func formatNode(b *strings.Builder, node *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if node.Name != "" {
		if node.Description != "" {
			fmt.Fprintf(b, "%s%s/ - %s\n", indent, node.Name, node.Description)
		} else {
			fmt.Fprintf(b, "%s%s/\n", indent, node.Name)
		}
		depth++
		indent = strings.Repeat("  ", depth)
	}

	names := make([]string, 0, len(node.Folders))
	for name := range node.Folders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		formatNode(b, node.Folders[name], depth)
	}

	files := make([]FileSpec, len(node.Files))
	copy(files, node.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	for _, f := range files {
		fmt.Fprintf(b, "%s%s\n", indent, f.Name)
	}
}
