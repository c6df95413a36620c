package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpeech = "The real remedy is to destroy the belief in the sanctity of the shastras. " +
	"You cannot have both. Caste is a notion, it is a state of the mind. " +
	"The sun rises in the east every morning and sets in the west every evening."

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	config := `
index:
  chunk_size: 80
  chunk_overlap: 10
embedding:
  provider: hash
  dimension: 256
logging:
  level: error
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "speechqa.yaml"), []byte(config), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "speech.txt"), []byte(testSpeech), 0644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestIndexThenReset(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := execute(t, "index", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "[✔] No previous vector DB found.")
	assert.Contains(t, out, "[1] Loading speech.txt ...")
	assert.Contains(t, out, "[4] Building vector DB ...")
	assert.Contains(t, out, "[✔] New vector DB created.")
	assert.FileExists(t, filepath.Join(dir, "vector_db", "index.db"))

	out, err = execute(t, "reset", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "[✔] Old vector DB deleted.")
	assert.NoFileExists(t, filepath.Join(dir, "vector_db", "index.db"))

	out, err = execute(t, "reset", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "[✔] No previous vector DB found.")
}

func TestIndex_MissingSource(t *testing.T) {
	dir := setupWorkspace(t)
	// Flag values stick to the shared root command between executions.
	t.Cleanup(func() { source = "" })

	_, err := execute(t, "index", "--dir", dir, "--source", "missing.txt")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "vector_db", "index.db"))
}

func TestAsk_WithoutIndex(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := execute(t, "ask", "--dir", dir, "-q", "Where does the sun rise?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speechqa index")
}
