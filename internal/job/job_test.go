package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyRequiresInputsPresent(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))

	j := New("/bin/true")
	j.Inputs = []FileRef{{Path: present}}
	assert.True(t, j.Ready())

	j.Inputs = append(j.Inputs, FileRef{Path: filepath.Join(dir, "missing.txt")})
	assert.False(t, j.Ready())
}

func TestReadyDirectoryEntryEmptyIsStillReady(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	j := New("/bin/true")
	j.Inputs = []FileRef{{Path: sub, IsDir: true}}
	assert.True(t, j.Ready())
}

func TestCompletedEmptyOutputsUsesReturnStatus(t *testing.T) {
	j := New("/bin/true")
	assert.False(t, j.Completed())
	assert.True(t, j.CompletedByReturn(0))
	assert.False(t, j.CompletedByReturn(1))
}

func TestCompletedZeroLengthOutputPolicy(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(out, nil, 0o644))

	j := New("/bin/true")
	j.Outputs = []FileRef{{Path: out}}
	assert.True(t, j.Completed(), "allow-zero-length defaults true")

	j.Options.AllowZeroLength = false
	assert.False(t, j.Completed())
}

func TestExhaustedRetries(t *testing.T) {
	j := New("/bin/true")
	j.Options.Retries = 1
	assert.False(t, j.ExhaustedRetries())
	j.Restart()
	assert.Equal(t, 2, j.Attempt)
	assert.True(t, j.ExhaustedRetries())
}

func TestRenderCommandShortensAbsolutePath(t *testing.T) {
	j := New("/usr/bin/align")
	j.Args = []Arg{{Flag: "-i", Value: "/data/reads/sample.fq", Shorten: true}}
	assert.Equal(t, "/usr/bin/align -i sample.fq", j.RenderCommand())
}

func TestValidateRejectsMissingCommand(t *testing.T) {
	j := &Job{}
	assert.Equal(t, "missing command string", j.Validate())
}

func TestSpecToJobAppliesDefaults(t *testing.T) {
	s := Spec{Command: "/bin/true"}
	j, reason := s.ToJob()
	require.Empty(t, reason)
	assert.True(t, j.Options.Accepts(0))
	assert.False(t, j.Options.Accepts(1))
	assert.True(t, j.Options.AllowZeroLength)
	assert.Equal(t, 0, j.Options.Retries)
}

func TestSpecToJobOverwriteClearsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	s := Spec{Command: "/bin/true", Outputs: []FileRef{{Path: out}}, Overwrite: 1}
	j, reason := s.ToJob()
	require.Empty(t, reason)
	assert.True(t, j.Overwrite)
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestSpecToJobWithoutOverwriteLeavesOutputAlone(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	s := Spec{Command: "/bin/true", Outputs: []FileRef{{Path: out}}}
	_, reason := s.ToJob()
	require.Empty(t, reason)
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestClearOutputsIgnoresMissingPath(t *testing.T) {
	j := New("/bin/true")
	j.Outputs = []FileRef{{Path: filepath.Join(t.TempDir(), "missing.txt")}}
	j.ClearOutputs() // must not panic or otherwise fail on a missing path
}

func TestDeepCopyIsIndependent(t *testing.T) {
	j := New("/bin/true")
	j.Inputs = []FileRef{{Path: "a"}}
	cp := j.DeepCopy()
	cp.Inputs[0].Path = "b"
	assert.Equal(t, "a", j.Inputs[0].Path)
}
