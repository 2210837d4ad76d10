package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/models/dtos"
)

// InboxScanProvider triggers the server-side inbox scan job for an account.
// The job is long-running and reports no incremental progress; callers get
// a single result when it finishes. The HTTP client timeout here is
// deliberately generous: the caller races the call against its own shorter
// wait and lets the job run to completion server-side.
type InboxScanProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewInboxScanProvider creates a new instance, reading config from environment variables
func NewInboxScanProvider() *InboxScanProvider {
	baseURL := os.Getenv("INBOX_SCAN_API_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.tripdesk.example.com/internal/v1" // Default
	}
	apiKey := os.Getenv("INBOX_SCAN_API_KEY")
	client := &http.Client{Timeout: 10 * time.Minute}
	return &InboxScanProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  client,
	}
}

type scanRequest struct {
	AccountID string `json:"account_id"`
}

// Scan runs one inbox scan for the account and blocks until the job
// finishes. 401 from the upstream means the account's inbox authorization
// has lapsed and the user must reconnect it.
func (p *InboxScanProvider) Scan(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(scanRequest{AccountID: accountID}); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/inbox/scan", buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, common.ErrAuthExpired
	default:
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: status %d", common.ErrUpstreamUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result dtos.ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	return &result, nil
}
