package carrier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIURL = "https://otpravka-api.pochta.ru/1.0/"

// APIError is an error body reported by the carrier itself.
type APIError struct {
	Message string `json:"error"`
	Status  int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("carrier error %d: %s", e.Status, e.Message)
}

// Client talks to the carrier shipping REST API.
type Client struct {
	baseURL string
	token   string
	userKey string
	client  *http.Client
}

func NewClient(baseURL, login, password, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		userKey: base64.StdEncoding.EncodeToString([]byte(login + ":" + password)),
		client:  &http.Client{Timeout: timeout},
	}
}

// Call performs one API request. GET sends data as a query string built from
// url.Values, any other method sends data as a JSON body.
func (c *Client) Call(ctx context.Context, endpoint string, data any, method string) (json.RawMessage, error) {
	u := c.baseURL + strings.TrimPrefix(endpoint, "/")
	var body io.Reader
	if method == http.MethodGet {
		if q, ok := data.(url.Values); ok && len(q) > 0 {
			u += "?" + q.Encode()
		}
	} else {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json;charset=UTF-8")
	req.Header.Set("Authorization", "AccessToken "+c.token)
	req.Header.Set("X-User-Authorization", "Basic "+c.userKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if apiErr := decodeAPIError(raw); apiErr != nil {
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode
		}
		return nil, apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func decodeAPIError(raw []byte) *APIError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var e APIError
	if err := json.Unmarshal(trimmed, &e); err != nil || e.Message == "" {
		return nil
	}
	return &e
}
