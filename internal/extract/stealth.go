package extract

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"
)

// stealthHeaders are applied to every outbound request so extractors
// present as an ordinary browser rather than a bare Go http.Client,
// reducing (not eliminating) the chance of a source's bot-detection
// layer short-circuiting straight to a captcha challenge.
var stealthHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// newStealthClient builds an http.Client with a conservative TLS profile
// and the shared header set applied via a RoundTripper wrapper. There is
// no third-party JA3-fingerprint-spoofing library in the retrieved
// example corpus, so this stays on crypto/tls and net/http configured by
// hand -- see DESIGN.md for the explicit standard-library justification.
func newStealthClient(cfg Config) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	return &http.Client{
		Transport: headerRoundTripper{base: transport},
		Timeout:   cfg.RequestTimeout,
	}
}

type headerRoundTripper struct {
	base http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range stealthHeaders {
		if clone.Header.Get(k) == "" {
			clone.Header.Set(k, v)
		}
	}
	return h.base.RoundTrip(clone)
}
