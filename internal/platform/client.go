package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Doer is the HTTP client surface adapters depend on.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient bounds provider calls that run outside a deadline
// context (token exchange, profile fetch, refresh).
var DefaultHTTPClient = &http.Client{Timeout: 10 * time.Second}

const maxErrBody = 4 << 10

// GetJSON performs a GET and decodes the JSON response into out.
func GetJSON(ctx context.Context, client Doer, platform, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Normalize(platform, err)
	}
	return do(client, platform, req, header, out)
}

// PostForm performs a form-encoded POST and decodes the JSON response.
func PostForm(ctx context.Context, client Doer, platform, rawURL string, header http.Header, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Normalize(platform, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, platform, req, header, out)
}

// PostJSON performs a JSON POST and decodes the JSON response.
func PostJSON(ctx context.Context, client Doer, platform, rawURL string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return Normalize(platform, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return Normalize(platform, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, platform, req, header, out)
}

func do(client Doer, platform string, req *http.Request, header http.Header, out any) error {
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if client == nil {
		client = DefaultHTTPClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Normalize(platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return FromStatus(platform, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Normalize(platform, err)
	}
	return nil
}

// BearerHeader builds an Authorization header for a bearer token.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
