// Package anchor talks to the public timestamping network that anchors
// content hashes. The proof blobs it returns are opaque to this system;
// they are stored as-is and handed back for upgrade checks.
package anchor

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client submits digests for anchoring and checks whether an existing
// proof can be upgraded to a confirmed one.
type Client interface {
	// Submit sends a digest to the anchoring network and returns the
	// initial (pending) proof artifact.
	Submit(ctx context.Context, digest []byte) ([]byte, error)

	// Upgrade asks whether the anchoring of digest has reached enough
	// confirmations. It returns the (possibly replaced) proof and true
	// once the anchor is durable, or the original proof and false while
	// still pending.
	Upgrade(ctx context.Context, digest []byte, proof []byte) ([]byte, bool, error)
}

// HTTPClient is the production Client backed by the anchor network's
// calendar HTTP API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the calendar server at baseURL.
// Requests are bounded by timeout; a timeout surfaces as an ordinary error
// that the caller treats as a per-item failure.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Submit posts the raw digest to the calendar and returns the pending proof
func (c *HTTPClient) Submit(ctx context.Context, digest []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/digest", bytes.NewReader(digest))
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anchor submit failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anchor submit returned status %d", resp.StatusCode)
	}

	proof, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read anchor proof: %w", err)
	}
	if len(proof) == 0 {
		return nil, fmt.Errorf("anchor submit returned empty proof")
	}

	return proof, nil
}

// Upgrade polls the calendar for a confirmed proof of the digest. A 404
// means the anchor has not reached enough confirmations yet; that is not an
// error, just "not yet".
func (c *HTTPClient) Upgrade(ctx context.Context, digest []byte, proof []byte) ([]byte, bool, error) {
	url := c.baseURL + "/timestamp/" + hex.EncodeToString(digest)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return proof, false, fmt.Errorf("failed to build upgrade request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return proof, false, fmt.Errorf("anchor upgrade failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return proof, false, nil
	case http.StatusOK:
		upgraded, err := io.ReadAll(resp.Body)
		if err != nil {
			return proof, false, fmt.Errorf("failed to read upgraded proof: %w", err)
		}
		if len(upgraded) == 0 {
			return proof, false, fmt.Errorf("anchor upgrade returned empty proof")
		}
		return upgraded, true, nil
	default:
		return proof, false, fmt.Errorf("anchor upgrade returned status %d", resp.StatusCode)
	}
}
