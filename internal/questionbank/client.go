package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

var (
	ErrEmptyUnit   = errors.New("unit id is empty")
	ErrInvalidBody = errors.New("upstream returned invalid JSON")
)

// StatusError carries a non-OK upstream status so callers can relay it.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("question bank returned status %d: %s", e.StatusCode, e.Message)
}

// Client fetches question sets for a unit from the upstream question bank.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// FetchUnit returns the upstream JSON body for unitID untouched.
func (c *Client) FetchUnit(ctx context.Context, unitID string) (json.RawMessage, error) {
	unitID = strings.TrimSpace(unitID)
	if unitID == "" {
		return nil, ErrEmptyUnit
	}

	reqURL := c.baseURL + "/questions/unit/" + url.PathEscape(unitID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch unit %s: %w", unitID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read unit %s: %w", unitID, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if !json.Valid(body) {
		return nil, ErrInvalidBody
	}
	return json.RawMessage(body), nil
}
