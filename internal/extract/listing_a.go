package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ListingSiteA pulls the price/beds/baths/sqft/hoa_fee core
// listing fields plus gallery image URLs from the first configured
// listing source.
type ListingSiteA struct {
	cfg    Config
	client *http.Client
}

func NewListingSiteA(cfg Config) *ListingSiteA {
	return &ListingSiteA{cfg: cfg, client: newStealthClient(cfg)}
}

func (e *ListingSiteA) Name() string { return "listing_a" }

var (
	priceRe  = regexp.MustCompile(`data-price="(\d+(?:\.\d+)?)"`)
	bedsRe   = regexp.MustCompile(`data-beds="(\d+)"`)
	bathsRe  = regexp.MustCompile(`data-baths="(\d+(?:\.\d+)?)"`)
	sqftRe   = regexp.MustCompile(`data-sqft="(\d+)"`)
	hoaRe    = regexp.MustCompile(`data-hoa="(\d+(?:\.\d+)?)"`)
	galleryA = regexp.MustCompile(`<img[^>]+class="gallery-photo"[^>]+src="([^"]+)"`)
)

func (e *ListingSiteA) Extract(ctx context.Context, t Target) ExtractResult {
	now := time.Now()
	res := ExtractResult{SourceName: e.Name(), Fields: map[string]any{}, AttemptedAt: now}

	body, status, blocker, err := fetchWithRetry(ctx, e.client, t.URL, e.cfg.logger())
	if err != nil {
		res.Status = status
		res.Blocker = blocker
		return res
	}

	if m := priceRe.FindSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			res.Fields["price"] = v
		}
	}
	if m := bedsRe.FindSubmatch(body); m != nil {
		if v, err := strconv.Atoi(string(m[1])); err == nil {
			res.Fields["beds"] = v
		}
	}
	if m := bathsRe.FindSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			res.Fields["baths"] = v
		}
	}
	if m := sqftRe.FindSubmatch(body); m != nil {
		if v, err := strconv.Atoi(string(m[1])); err == nil {
			res.Fields["sqft"] = v
		}
	}
	if m := hoaRe.FindSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			res.Fields["hoa_fee"] = v
			res.Fields["hoa_fee_known"] = true
		}
	}

	for _, m := range galleryA.FindAllSubmatch(body, -1) {
		url := string(m[1])
		if imgBody, _, _, err := fetchWithRetry(ctx, e.client, url, e.cfg.logger()); err == nil {
			res.Images = append(res.Images, ImagePayload{URL: url, Bytes: imgBody})
		}
	}

	res.Status = StatusOK
	if len(res.Fields) == 0 {
		res.Status = StatusPartial
	}
	return res
}

// fetchWithRetry performs a GET with exponential backoff for transient
// failures, detecting captcha/rate-limit responses as hard blockers that
// the caller should not retry against. The returned blocker string is
// "captcha", "rate_limited", or "" and mirrors exactly what the caller
// should set on ExtractResult.Blocker.
func fetchWithRetry(ctx context.Context, client *http.Client, target string, log *zap.Logger) ([]byte, Status, string, error) {
	var body []byte
	var outcome Status
	var blocker string

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			outcome = StatusFatalErr
			return backoff.Permanent(err)
		}

		resp, err := client.Do(req)
		if err != nil {
			outcome = StatusTransientErr
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			outcome = StatusBlocked
			blocker = "rate_limited"
			return backoff.Permanent(fmt.Errorf("rate limited"))
		case http.StatusForbidden:
			outcome = StatusBlocked
			blocker = "captcha"
			return backoff.Permanent(fmt.Errorf("blocked (likely captcha)"))
		case http.StatusNotFound:
			outcome = StatusNotFound
			return backoff.Permanent(fmt.Errorf("not found"))
		}
		if resp.StatusCode >= 500 {
			outcome = StatusTransientErr
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			outcome = StatusFatalErr
			return backoff.Permanent(fmt.Errorf("client error %d", resp.StatusCode))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			outcome = StatusTransientErr
			return err
		}
		body = b
		outcome = StatusOK
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		log.Warn("extract fetch failed", zap.String("url", target), zap.Error(err), zap.String("status", string(outcome)))
		return nil, outcome, blocker, err
	}
	return body, outcome, blocker, nil
}
