package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sociogram/pkg/errors"
)

func TestGraphviz_MissingBinary(t *testing.T) {
	r := NewGraphviz("/nonexistent/dot-binary")

	_, err := r.Render(context.Background(), "digraph {}\n")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeRender))
}

func TestGraphviz_NonZeroExit(t *testing.T) {
	// `false` ignores stdin and exits 1, standing in for a failing renderer
	r := NewGraphviz("false")

	_, err := r.Render(context.Background(), "digraph {}\n")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeRender))
}

func TestGraphviz_PipesStdinToStdout(t *testing.T) {
	// A script that echoes stdin stands in for a renderer producing bytes
	script := filepath.Join(t.TempDir(), "fake-dot")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat\n"), 0o755))

	r := NewGraphviz(script)

	out, err := r.Render(context.Background(), "digraph {}\n")
	require.NoError(t, err)
	assert.Equal(t, "digraph {}\n", string(out))
}

func TestGraphviz_DefaultBinary(t *testing.T) {
	assert.Equal(t, "dot", NewGraphviz("").Binary)
	assert.Equal(t, "neato", NewGraphviz("neato").Binary)
}
