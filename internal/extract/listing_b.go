package extract

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ListingSiteB extracts price/beds/baths/sqft/description (but not
// hoa_fee) from a second listing source's JSON markup, and additionally
// rewrites gallery thumbnail
// URLs to their full-resolution equivalents before downloading -- this
// source serves photo galleries as low-res thumbnails by default, with
// full-size images reachable by substituting a path segment.
type ListingSiteB struct {
	cfg    Config
	client *http.Client
}

func NewListingSiteB(cfg Config) *ListingSiteB {
	return &ListingSiteB{cfg: cfg, client: newStealthClient(cfg)}
}

func (e *ListingSiteB) Name() string { return "listing_b" }

var (
	jsonPriceB = regexp.MustCompile(`"listPrice":(\d+(?:\.\d+)?)`)
	jsonBedsB  = regexp.MustCompile(`"bedrooms":(\d+)`)
	jsonBathsB = regexp.MustCompile(`"bathrooms":(\d+(?:\.\d+)?)`)
	jsonSqftB  = regexp.MustCompile(`"livingArea":(\d+)`)
	jsonDescB  = regexp.MustCompile(`"description":"([^"]*)"`)
	galleryB   = regexp.MustCompile(`"photoUrl":"([^"]+)"`)
)

const (
	thumbSeg = "/thumb/"
	fullSeg  = "/original/"
)

func (e *ListingSiteB) Extract(ctx context.Context, t Target) ExtractResult {
	res := ExtractResult{SourceName: e.Name(), Fields: map[string]any{}, AttemptedAt: time.Now()}

	body, status, blocker, err := fetchWithRetry(ctx, e.client, t.URL, e.cfg.logger())
	if err != nil {
		res.Status = status
		res.Blocker = blocker
		return res
	}

	if m := jsonPriceB.FindSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			res.Fields["price"] = v
		}
	}
	if m := jsonBedsB.FindSubmatch(body); m != nil {
		if v, err := strconv.Atoi(string(m[1])); err == nil {
			res.Fields["beds"] = v
		}
	}
	if m := jsonBathsB.FindSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			res.Fields["baths"] = v
		}
	}
	if m := jsonSqftB.FindSubmatch(body); m != nil {
		if v, err := strconv.Atoi(string(m[1])); err == nil {
			res.Fields["sqft"] = v
		}
	}
	if m := jsonDescB.FindSubmatch(body); m != nil {
		res.Fields["description"] = string(m[1])
	}

	for _, m := range galleryB.FindAllSubmatch(body, -1) {
		fullURL := toFullResolution(string(m[1]))
		if imgBody, _, _, err := fetchWithRetry(ctx, e.client, fullURL, e.cfg.logger()); err == nil {
			res.Images = append(res.Images, ImagePayload{URL: fullURL, Bytes: imgBody})
		}
	}

	res.Status = StatusOK
	if len(res.Fields) == 0 {
		res.Status = StatusPartial
	}
	return res
}

// toFullResolution rewrites a thumbnail gallery URL to its full-size
// counterpart; URLs with no recognizable thumbnail segment pass through
// unchanged (the dedup layer will still catch any resulting duplicate).
func toFullResolution(photoURL string) string {
	if strings.Contains(photoURL, thumbSeg) {
		return strings.Replace(photoURL, thumbSeg, fullSeg, 1)
	}
	return photoURL
}
