package phash

import (
	"sync"
)

// Entry is one registered image's identity plus the hash it was
// registered under, returned by Index.Candidates/IsDuplicate so callers
// can attribute a detected duplicate back to its source image.
type Entry struct {
	ImageID string
	Hash    Hash
	Address string
	Source  string
}

const bandCount = 8
const bitsPerBand = 64 / bandCount

// Index is an LSH banding index over pHash values: each 64-bit hash is
// split into bandCount 8-bit keys, and an image is only compared exactly
// against others sharing at least one band key, turning whole-corpus
// duplicate detection into a near-O(n) candidate-bucket scan instead of
// pairwise comparison against every previously seen image.
type Index struct {
	mu        sync.RWMutex
	threshold int
	bands     [bandCount]map[uint8][]Entry
	entries   []Entry
}

// NewIndex builds an empty index. threshold is the maximum pHash
// Hamming distance at which two images are considered duplicates.
func NewIndex(threshold int) *Index {
	idx := &Index{threshold: threshold}
	for i := range idx.bands {
		idx.bands[i] = map[uint8][]Entry{}
	}
	return idx
}

func bandKeys(h uint64) [bandCount]uint8 {
	var keys [bandCount]uint8
	for i := 0; i < bandCount; i++ {
		keys[i] = uint8(h >> (uint(i) * bitsPerBand))
	}
	return keys
}

// Candidates returns every previously registered entry sharing at least
// one LSH band with h's pHash value, deduplicated.
func (idx *Index) Candidates(h Hash) []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := map[string]bool{}
	var out []Entry
	for i, key := range bandKeys(h.PHash) {
		for _, e := range idx.bands[i][key] {
			if !seen[e.ImageID] {
				seen[e.ImageID] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// IsDuplicate reports whether h matches any registered entry within the
// index's threshold, returning the matching entry if so.
func (idx *Index) IsDuplicate(h Hash) (Entry, bool) {
	for _, cand := range idx.Candidates(h) {
		if Hamming(h.PHash, cand.Hash.PHash) <= idx.threshold {
			return cand, true
		}
	}
	return Entry{}, false
}

// IsDuplicateScoped checks entries belonging to address first (cheapest,
// most likely match -- two sources photographing the same listing), and
// only falls back to a global check across every property if no
// same-property match is found.
func (idx *Index) IsDuplicateScoped(h Hash, address string) (Entry, bool) {
	var sameProperty, other []Entry
	for _, cand := range idx.Candidates(h) {
		if cand.Address == address {
			sameProperty = append(sameProperty, cand)
		} else {
			other = append(other, cand)
		}
	}
	for _, cand := range sameProperty {
		if Hamming(h.PHash, cand.Hash.PHash) <= idx.threshold {
			return cand, true
		}
	}
	for _, cand := range other {
		if Hamming(h.PHash, cand.Hash.PHash) <= idx.threshold {
			return cand, true
		}
	}
	return Entry{}, false
}

// Register adds an entry to every band bucket its pHash falls into. It
// does not check for duplicates first -- callers that want "register
// only if new" should call IsDuplicate then Register themselves, which
// the extraction orchestrator does so it can log the rejection
// separately from the registration.
func (idx *Index) Register(e Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, key := range bandKeys(e.Hash.PHash) {
		idx.bands[i][key] = append(idx.bands[i][key], e)
	}
	idx.entries = append(idx.entries, e)
}

// Stats summarizes the index's current population. The image manifest's
// total_downloaded/duplicates_rejected counts are kept by the extraction
// orchestrator, not derived from Stats.
type Stats struct {
	TotalEntries int
	BandCount    int
}

func (idx *Index) StatsSnapshot() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{TotalEntries: len(idx.entries), BandCount: bandCount}
}

// Entries returns a snapshot copy of every registered entry, used when
// persisting the index to the manifest file.
func (idx *Index) Entries() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}
