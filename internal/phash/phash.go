// Package phash detects near-duplicate property photos across sources
// using perceptual hashing plus an LSH band index, the same
// bucket-then-compare shape the teacher's coinjoin participant matcher
// used to narrow O(n^2) output comparisons down to O(n) via candidate
// buckets before paying for an exact distance check.
package phash

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

// Hash holds both perceptual hashes computed for one decoded image.
// Two separate algorithms are kept because they fail in different ways:
// pHash (DCT-based) is robust to recompression and minor color shifts,
// dHash (gradient-based) is robust to the thumbnail-vs-full-res resizing
// that gallery/full-size URL pairs produce. Duplicate detection in Index
// compares the pHash values only; the dHash is stored alongside it in
// the hash manifest.
type Hash struct {
	PHash uint64
	DHash uint64
}

// defaultMaxDimension bounds decoded image size before hashing; the
// extraction config exposes this as extraction.max_image_dimension so a
// single property's photos don't blow memory before hash reduction.
const defaultMaxDimension = 1024

// Compute decodes raw image bytes and returns its perceptual and
// difference hashes. Images above maxDim on their longest side are
// downscaled first; a maxDim of 0 uses defaultMaxDimension.
func Compute(raw []byte, maxDim int) (Hash, error) {
	if maxDim <= 0 {
		maxDim = defaultMaxDimension
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Hash{}, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	ph, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return Hash{}, fmt.Errorf("perception hash: %w", err)
	}
	dh, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return Hash{}, fmt.Errorf("difference hash: %w", err)
	}

	return Hash{PHash: ph.GetHash(), DHash: dh.GetHash()}, nil
}

// Hamming returns the number of differing bits between two 64-bit hashes.
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Distance combines pHash and dHash Hamming distance into one score,
// taking the maximum of the two so two images only score as close when
// both algorithms agree it's close; this is deliberately stricter than
// averaging, which can hide a large pHash mismatch behind a small dHash
// one on textured real-estate photos (siding, landscaping).
func Distance(a, b Hash) int {
	pd := Hamming(a.PHash, b.PHash)
	dd := Hamming(a.DHash, b.DHash)
	if pd > dd {
		return pd
	}
	return dd
}
