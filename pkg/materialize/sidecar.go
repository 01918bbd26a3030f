package materialize

import (
	"path/filepath"

	"github.com/arbordoc/arbordoc/pkg/fsutil"
	"github.com/arbordoc/arbordoc/pkg/tree"
)

// SidecarName is the per-folder metadata file that makes runs resumable.
const SidecarName = ".metadata.json"

// Sidecar records a folder's validated structure next to the folder
// itself. The root sidecar additionally records the run parameters.
type Sidecar struct {
	Name              string                   `json:"name"`
	Description       string                   `json:"description"`
	ParentFolder      string                   `json:"parent_folder,omitempty"`
	GrandparentFolder string                   `json:"grandparent_folder,omitempty"`
	Industry          string                   `json:"industry"`
	Purpose           string                   `json:"purpose,omitempty"`
	Language          string                   `json:"language,omitempty"`
	Role              string                   `json:"role,omitempty"`
	DateStart         string                   `json:"date_start,omitempty"`
	DateEnd           string                   `json:"date_end,omitempty"`
	Folders           map[string]SidecarFolder `json:"folders,omitempty"`
	Files             []SidecarFile            `json:"files,omitempty"`
}

type SidecarFolder struct {
	Description string `json:"description"`
	Purpose     string `json:"purpose,omitempty"`
}

type SidecarFile struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

func sidecarFromNode(node *tree.Node, parent, grandparent string, req tree.Request, isRoot bool) Sidecar {
	sc := Sidecar{
		Name:              node.Name,
		Description:       node.Description,
		ParentFolder:      parent,
		GrandparentFolder: grandparent,
		Industry:          req.Industry,
		Purpose:           node.Purpose,
	}
	if isRoot {
		sc.Language = req.Language
		sc.Role = req.Role
		sc.DateStart = req.Dates.Start
		sc.DateEnd = req.Dates.End
	}
	if len(node.Folders) > 0 {
		sc.Folders = map[string]SidecarFolder{}
		for name, child := range node.Folders {
			sc.Folders[name] = SidecarFolder{Description: child.Description, Purpose: child.Purpose}
		}
	}
	for _, f := range node.Files {
		sc.Files = append(sc.Files, SidecarFile(f))
	}
	return sc
}

// WriteSidecar persists the sidecar inside dir.
func WriteSidecar(dir string, sc Sidecar) error {
	return fsutil.WriteJSON(filepath.Join(dir, SidecarName), sc)
}

// ReadSidecar loads the sidecar inside dir, reporting whether one exists.
func ReadSidecar(dir string) (Sidecar, bool) {
	path := filepath.Join(dir, SidecarName)
	if !fsutil.Exists(path) {
		return Sidecar{}, false
	}
	var sc Sidecar
	if err := fsutil.ReadJSON(path, &sc); err != nil {
		return Sidecar{}, false
	}
	return sc, true
}

// AppendSidecarFiles merges newly created files into an existing sidecar,
// keeping entries already recorded there.
func AppendSidecarFiles(dir string, created []SidecarFile) error {
	sc, ok := ReadSidecar(dir)
	if !ok {
		sc = Sidecar{Name: filepath.Base(dir)}
	}
	known := map[string]bool{}
	for _, f := range sc.Files {
		known[f.Name] = true
	}
	for _, f := range created {
		if !known[f.Name] {
			sc.Files = append(sc.Files, f)
			known[f.Name] = true
		}
	}
	return WriteSidecar(dir, sc)
}
