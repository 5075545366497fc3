package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	symdiff "github.com/njchilds90/symdiff"
)

const rosenbrockFile = "../../internal/problem/testdata/rosenbrock.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { symdiff.SetLogger(nil) })
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEval(t *testing.T) {
	out, err := run(t, "eval", rosenbrockFile, "--at", "x=1,y=1")
	require.NoError(t, err)
	assert.Contains(t, out, "value\t0\n")
	assert.Contains(t, out, "x + y = 2\t2\tok")
}

func TestGradient_JSON(t *testing.T) {
	out, err := run(t, "gradient", rosenbrockFile, "-o", "json")
	require.NoError(t, err)
	var got struct {
		Variables []string  `json:"variables"`
		Gradient  []float64 `json:"gradient"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"x", "y"}, got.Variables)
	require.Len(t, got.Gradient, 2)
	assert.InDelta(t, -215.6, got.Gradient[0], 1e-9)
}

func TestHessian_Text(t *testing.T) {
	out, err := run(t, "hessian", rosenbrockFile, "--at", "x=1,y=1")
	require.NoError(t, err)
	assert.Equal(t, "\tx\ty\nx\t802\t-400\ny\t-400\t200\n", out)
}

func TestCheck(t *testing.T) {
	out, err := run(t, "check", rosenbrockFile, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: true")
}

func TestMinimize(t *testing.T) {
	out, err := run(t, "minimize", rosenbrockFile, "--method", "bfgs", "-o", "json")
	require.NoError(t, err)
	var got minimizeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.InDelta(t, 1.0, got.Point["x"], 1e-4)
	assert.InDelta(t, 1.0, got.Point["y"], 1e-4)
}

func TestPrint(t *testing.T) {
	out, err := run(t, "print", rosenbrockFile, "--wrt", "y")
	require.NoError(t, err)
	assert.Equal(t, "200*(y - x^2)\n", out)

	out, err = run(t, "print", rosenbrockFile, "--wrt", "y", "--latex")
	require.NoError(t, err)
	assert.Equal(t, "200 \\cdot \\left(y - {x}^{2}\\right)\n", out)

	_, err = run(t, "print", rosenbrockFile, "--wrt", "z")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symdiff.toml")
	require.NoError(t, os.WriteFile(path, []byte("[evaluator]\nmode = \"compact\"\n"), 0o644))
	out, err := run(t, "--config", path, "eval", rosenbrockFile, "--at", "x=1,y=1")
	require.NoError(t, err)
	assert.Contains(t, out, "value\t0")

	require.NoError(t, os.WriteFile(path, []byte("[evaluator]\nmode = \"lazy\"\n"), 0o644))
	_, err = run(t, "--config", path, "eval", rosenbrockFile)
	assert.Error(t, err)
}

func TestBadArguments(t *testing.T) {
	_, err := run(t, "eval", rosenbrockFile, "--at", "x=one")
	assert.Error(t, err)
	_, err = run(t, "eval", rosenbrockFile, "-o", "xml")
	assert.Error(t, err)
	_, err = run(t, "eval", "missing.yaml")
	assert.Error(t, err)
	_, err = run(t, "eval")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "symdiff dev\n", out)
}
