package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arbordoc/arbordoc/pkg/oracle"
)

const contentTemperature = 0.7

func contentPrompt(job Job) string {
	prompt := fmt.Sprintf(
		"Write the full content of a business document named %q used in the %s industry.",
		job.Filename, job.Industry,
	)
	if job.Description != "" {
		prompt += fmt.Sprintf(" The document is: %s.", job.Description)
	}
	if job.Role != "" {
		prompt += fmt.Sprintf(" It is maintained by a %s.", job.Role)
	}
	if job.Language != "" {
		prompt += fmt.Sprintf(" Respond in the language with BCP-47 tag %s.", job.Language)
	}
	prompt += " Output only the document body, no commentary."
	return prompt
}

// TextRenderer asks the oracle for the document body and writes it as-is.
type TextRenderer struct {
	Generator TextGenerator
}

func (r *TextRenderer) Render(ctx context.Context, job Job) error {
	body, err := r.generateBody(ctx, job)
	if err != nil {
		return err
	}
	if err := os.WriteFile(job.Path(), []byte(body), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", job.Path(), err)
	}
	return nil
}

func (r *TextRenderer) generateBody(ctx context.Context, job Job) (string, error) {
	body, err := generate(ctx, r.Generator, job)
	if err != nil {
		return "", err
	}
	if body == "" {
		body = job.Description
	}
	return body + "\n", nil
}

// DraftRenderer covers office formats we do not emit natively: the
// generated body goes into the file under a format header, so the tree
// shape and naming stay realistic even though the bytes are plain text.
type DraftRenderer struct {
	Format    string
	Generator TextGenerator
}

func (r *DraftRenderer) Render(ctx context.Context, job Job) error {
	body, err := generate(ctx, r.Generator, job)
	if err != nil {
		logrus.Warnf("draft %s: falling back to description for %s: %v", r.Format, job.Filename, err)
		body = job.Description
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[draft %s document]\n", r.Format)
	fmt.Fprintf(&buf, "title: %s\n\n", job.Filename)
	buf.WriteString(body)
	buf.WriteByte('\n')
	if err := os.WriteFile(job.Path(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", job.Path(), err)
	}
	return nil
}

// ImageRenderer writes a minimal valid image so viewers can open the file.
type ImageRenderer struct {
	Format string
}

func (r *ImageRenderer) Render(_ context.Context, job Job) error {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 0xee
	}
	img.Set(0, 0, color.RGBA{A: 0xff})

	var buf bytes.Buffer
	var err error
	if r.Format == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		return fmt.Errorf("encode %s image: %w", r.Format, err)
	}
	if err := os.WriteFile(job.Path(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", job.Path(), err)
	}
	return nil
}

func generate(ctx context.Context, gen TextGenerator, job Job) (string, error) {
	if gen == nil {
		return job.Description, nil
	}
	body, err := gen.Generate(ctx, oracle.Request{
		Prompt:      contentPrompt(job),
		Temperature: contentTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate content for %s: %w", job.Filename, err)
	}
	return strings.TrimSpace(body), nil
}
