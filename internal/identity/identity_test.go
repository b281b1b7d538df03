package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableIDIgnoresPath(t *testing.T) {
	a := StableID("contract.pdf", 1024, 1700000000)
	b := StableID("archive/2023/contract.pdf", 1024, 1700000000)
	assert.Equal(t, a, b)
}

func TestLegacyIDSensitiveToPath(t *testing.T) {
	a := LegacyID("contracts/contract.pdf", 1024, 1700000000)
	b := LegacyID("archive/contract.pdf", 1024, 1700000000)
	assert.NotEqual(t, a, b)
}

func TestIDsChangeWithMetadata(t *testing.T) {
	base := StableID("contract.pdf", 1024, 1700000000)
	assert.NotEqual(t, base, StableID("contract.pdf", 1025, 1700000000))
	assert.NotEqual(t, base, StableID("contract.pdf", 1024, 1700000001))
	assert.NotEqual(t, base, StableID("other.pdf", 1024, 1700000000))
}

func TestFromFileInfo(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(fp, []byte("hello"), 0644))

	info, err := os.Stat(fp)
	require.NoError(t, err)

	stable, legacy := FromFileInfo("sub/doc.txt", info)
	assert.Len(t, stable, 40) // sha1 hex
	assert.Len(t, legacy, 40)
	assert.NotEqual(t, stable, legacy)

	// Same file under a different relative path: stable holds, legacy moves.
	stable2, legacy2 := FromFileInfo("moved/doc.txt", info)
	assert.Equal(t, stable, stable2)
	assert.NotEqual(t, legacy, legacy2)
}
