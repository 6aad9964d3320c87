// Package render turns DOT graph descriptions into PNG images via an
// external graphviz subprocess, isolated behind a narrow interface so tests
// and future in-process renderers can replace it.
package render

import (
	"bytes"
	"context"
	"os/exec"

	apperrors "sociogram/pkg/errors"
)

// Renderer produces image bytes from a textual graph description.
type Renderer interface {
	Render(ctx context.Context, dot string) ([]byte, error)
}

// Graphviz invokes the dot binary, piping the description through stdin and
// collecting the PNG from stdout. No timeout is imposed here; callers cancel
// through the context if they want one.
type Graphviz struct {
	// Binary is the dot executable to invoke, "dot" by default.
	Binary string
}

// NewGraphviz creates a renderer for the given binary path.
func NewGraphviz(binary string) *Graphviz {
	if binary == "" {
		binary = "dot"
	}
	return &Graphviz{Binary: binary}
}

// Render implements Renderer. A non-zero exit becomes a render error
// carrying the subprocess's stderr.
func (g *Graphviz) Render(ctx context.Context, dot string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, g.Binary, "-Tpng")
	cmd.Stdin = bytes.NewReader([]byte(dot))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, apperrors.NewRenderFailed(stderr.String(), err)
	}

	return stdout.Bytes(), nil
}
