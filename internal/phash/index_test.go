package phash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHammingZeroForIdentical(t *testing.T) {
	assert.Equal(t, 0, Hamming(0xABCDEF, 0xABCDEF))
}

func TestHammingCountsDifferingBits(t *testing.T) {
	assert.Equal(t, 1, Hamming(0b0000, 0b0001))
	assert.Equal(t, 2, Hamming(0b0000, 0b0011))
}

func TestIndexRegisterAndIsDuplicate(t *testing.T) {
	idx := NewIndex(8)
	h := Hash{PHash: 0x1111111111111111, DHash: 0x2222222222222222}
	idx.Register(Entry{ImageID: "a", Hash: h, Address: "1 main st", Source: "listing_a"})

	close := Hash{PHash: h.PHash ^ 0x1, DHash: h.DHash} // 1 bit off
	match, dup := idx.IsDuplicate(close)
	require.True(t, dup)
	assert.Equal(t, "a", match.ImageID)
}

func TestIndexRejectsDistantHash(t *testing.T) {
	idx := NewIndex(4)
	h := Hash{PHash: 0x0, DHash: 0x0}
	idx.Register(Entry{ImageID: "a", Hash: h})

	far := Hash{PHash: 0xFFFFFFFFFFFFFFFF, DHash: 0xFFFFFFFFFFFFFFFF}
	_, dup := idx.IsDuplicate(far)
	assert.False(t, dup)
}

func TestIndexCandidatesDeduplicated(t *testing.T) {
	idx := NewIndex(8)
	h := Hash{PHash: 0xAAAA, DHash: 0xAAAA}
	idx.Register(Entry{ImageID: "a", Hash: h})

	cands := idx.Candidates(h)
	require.Len(t, cands, 1)
	assert.Equal(t, "a", cands[0].ImageID)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	idx := NewIndex(8)
	idx.Register(Entry{ImageID: "img-1", Hash: Hash{PHash: 1, DHash: 2}, Address: "1 main st", Source: "county"})
	require.NoError(t, idx.Save(path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path, 8)
	require.NoError(t, err)
	entries := reloaded.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "img-1", entries[0].ImageID)
	assert.Equal(t, uint64(1), entries[0].Hash.PHash)
}

func TestLoadMissingFileReturnsEmptyIndex(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "missing.json"), 8)
	require.NoError(t, err)
	assert.Empty(t, idx.Entries())
}
