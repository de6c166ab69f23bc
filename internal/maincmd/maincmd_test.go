package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/internal/maincmd"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.wisp")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunPrintsOutput(t *testing.T) {
	path := writeScript(t, `print 1 + 2;`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "run", path}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 0, int(code))
	assert.Equal(t, "3\n", out.String())
}

func TestRunCompileErrorExitsWith65(t *testing.T) {
	path := writeScript(t, `return 1;`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "run", path}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 65, int(code))
}

func TestRunRuntimeErrorExitsWith70(t *testing.T) {
	path := writeScript(t, `print undef;`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "run", path}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 70, int(code))
}

func TestRunMissingFileExitsWith64(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "run", "/does/not/exist.wisp"}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 64, int(code))
}

func TestTokenizePrintsOneLinePerToken(t *testing.T) {
	path := writeScript(t, `print 1;`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "tokenize", path}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 0, int(code))
	assert.Contains(t, out.String(), "print")
	assert.Contains(t, out.String(), "end of file")
}

func TestDisasmPrintsOpcodes(t *testing.T) {
	path := writeScript(t, `print 1 + 2;`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "disasm", path}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 0, int(code))
	assert.Contains(t, out.String(), "ADD")
}

func TestHelpFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "--help"}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 0, int(code))
	assert.Contains(t, out.String(), "usage:")
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"wisp", "bogus"}, mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: strings.NewReader("")})
	assert.Equal(t, 64, int(code))
}
