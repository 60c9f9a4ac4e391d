package models

import "time"

// ImageRecord describes a single downloaded, deduplicated image belonging
// to a property.
type ImageRecord struct {
	ImageID         string    `json:"image_id"`
	PerceptualHash  uint64    `json:"perceptual_hash"`
	DifferenceHash  uint64    `json:"difference_hash"`
	PropertyAddress string    `json:"property_address"`
	Source          string    `json:"source"`
	BytesPath       string    `json:"bytes_path"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// ImageManifest aggregates every ImageRecord downloaded for one property.
type ImageManifest struct {
	Address            string        `json:"address"`
	AddressHash        string        `json:"address_hash"`
	Images             []ImageRecord `json:"images"`
	TotalDownloaded    int           `json:"total_downloaded"`
	DuplicatesRejected int           `json:"duplicates_rejected"`
}

// HashEntry is a single record in the global HashIndex, persisted so the
// LSH buckets can be rebuilt on load.
type HashEntry struct {
	ImageID string `json:"image_id"`
	PHash   uint64 `json:"phash"`
	DHash   uint64 `json:"dhash"`
	Address string `json:"address"`
	Source  string `json:"source"`
}
