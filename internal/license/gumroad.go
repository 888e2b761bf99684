// Package license talks to the external license authority. Keys are
// opaque strings; this package only relays the remote verdict.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"audioverter/internal/config"
)

// Verifier answers whether a license key is currently valid.
type Verifier interface {
	Verify(ctx context.Context, key string) (bool, error)
}

// GumroadVerifier verifies keys against the Gumroad license API.
type GumroadVerifier struct {
	verifyURL string
	permalink string
	client    *http.Client
}

func NewGumroadVerifier(cfg config.LicenseConfig) *GumroadVerifier {
	return &GumroadVerifier{
		verifyURL: cfg.VerifyURL,
		permalink: cfg.ProductPermalink,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
	}
}

type verifyRequest struct {
	ProductPermalink string `json:"product_permalink"`
	LicenseKey       string `json:"license_key"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Verify returns the remote oracle's verdict. A reachable API that
// says "no" is (false, nil); only transport-level trouble is an error.
func (v *GumroadVerifier) Verify(ctx context.Context, key string) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		ProductPermalink: v.permalink,
		LicenseKey:       key,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("license verify request: %w", err)
	}
	defer resp.Body.Close()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("license verify response: %w", err)
	}

	return out.Success, nil
}
