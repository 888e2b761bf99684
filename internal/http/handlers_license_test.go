package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"audioverter/internal/license"
)

type fakeVerifier struct {
	valid   bool
	err     error
	lastKey string
}

func (f *fakeVerifier) Verify(_ context.Context, key string) (bool, error) {
	f.lastKey = key
	return f.valid, f.err
}

func TestVerifyLicense_MissingKey(t *testing.T) {
	v := &fakeVerifier{}
	app := testApp("POST", "/api/verify-license", verifyLicenseHandler, map[string]any{"verifier": v})

	for _, body := range []string{"", "{}", `{"licenseKey":"  "}`} {
		req := httptest.NewRequest("POST", "/api/verify-license", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != 400 {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}

		var out VerifyLicenseResponse
		if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if out.Error != "License key is required" {
			t.Fatalf("body %q: error = %q", body, out.Error)
		}
	}

	if v.lastKey != "" {
		t.Fatal("missing key must not reach the verifier")
	}
}

func TestVerifyLicense_Valid(t *testing.T) {
	v := &fakeVerifier{valid: true}
	app := testApp("POST", "/api/verify-license", verifyLicenseHandler, map[string]any{"verifier": v})

	req := httptest.NewRequest("POST", "/api/verify-license", strings.NewReader(`{"licenseKey":"ABCD-1234"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out VerifyLicenseResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success || out.Message != "License verified successfully" {
		t.Fatalf("unexpected response %+v", out)
	}
	if v.lastKey != "ABCD-1234" {
		t.Fatalf("verifier saw key %q", v.lastKey)
	}
}

func TestVerifyLicense_Invalid(t *testing.T) {
	v := &fakeVerifier{valid: false}
	app := testApp("POST", "/api/verify-license", verifyLicenseHandler, map[string]any{"verifier": v})

	req := httptest.NewRequest("POST", "/api/verify-license", strings.NewReader(`{"licenseKey":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var out VerifyLicenseResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Code != "INVALID_LICENSE" {
		t.Fatalf("code = %q, want INVALID_LICENSE", out.Code)
	}
}

func TestVerifyLicense_OracleUnreachable(t *testing.T) {
	v := &fakeVerifier{err: errors.New("connection refused")}
	app := testApp("POST", "/api/verify-license", verifyLicenseHandler, map[string]any{"verifier": v})

	req := httptest.NewRequest("POST", "/api/verify-license", strings.NewReader(`{"licenseKey":"ABCD-1234"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestPlansEndpoint(t *testing.T) {
	app := testApp("GET", "/api/subscription/plans", plansHandler, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/subscription/plans", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out map[string]license.Plan
	if err := json.Unmarshal(readBody(t, resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(out))
	}
	if out["PRO"].Price != 9.99 {
		t.Fatalf("PRO price = %v, want 9.99", out["PRO"].Price)
	}
}
