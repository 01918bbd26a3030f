// Package render turns planned file entries into bytes on disk. A registry
// maps filename extensions to renderers; text formats get oracle-generated
// content, binary formats get a draft body good enough to open.
package render

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arbordoc/arbordoc/pkg/oracle"
)

// Job carries everything a renderer needs to produce one file.
type Job struct {
	Dir         string
	Filename    string
	Description string
	Industry    string
	Language    string
	Role        string
	Purpose     string
}

// Path returns the absolute destination of the job's file.
func (j Job) Path() string {
	return filepath.Join(j.Dir, j.Filename)
}

// Renderer writes one file for a job.
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// TextGenerator is the slice of the oracle client renderers use.
type TextGenerator interface {
	Generate(ctx context.Context, req oracle.Request) (string, error)
}

// Registry resolves renderers by filename extension.
type Registry struct {
	byExt    map[string]Renderer
	fallback Renderer
}

// NewRegistry builds the default renderer set backed by gen.
func NewRegistry(gen TextGenerator) *Registry {
	text := &TextRenderer{Generator: gen}
	r := &Registry{
		byExt:    map[string]Renderer{},
		fallback: text,
	}
	r.Register("txt", text)
	r.Register("md", text)
	r.Register("csv", text)
	for _, ext := range []string{"docx", "xlsx", "pdf"} {
		r.Register(ext, &DraftRenderer{Format: ext, Generator: gen})
	}
	r.Register("png", &ImageRenderer{Format: "png"})
	r.Register("jpg", &ImageRenderer{Format: "jpg"})
	r.Register("jpeg", &ImageRenderer{Format: "jpg"})
	return r
}

// Register maps an extension (without dot) to a renderer.
func (r *Registry) Register(ext string, renderer Renderer) {
	r.byExt[strings.ToLower(ext)] = renderer
}

// For picks the renderer for a filename, falling back to plain text.
func (r *Registry) For(filename string) Renderer {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if renderer, ok := r.byExt[ext]; ok {
		return renderer
	}
	return r.fallback
}
