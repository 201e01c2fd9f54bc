package rigstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client communicates with the rigstore HTTP API, the retargeting service
// that consumes ingested clips.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ClipRecord is the body for PUT /clips/{id}: everything the retargeting
// side needs to decide whether and how to map a clip onto a rig.
type ClipRecord struct {
	Name            string   `json:"name"`
	ContentHash     string   `json:"content_hash"`
	JointCount      int      `json:"joint_count"`
	ChannelCount    int      `json:"channel_count"`
	FrameCount      int      `json:"frame_count"`
	FrameTime       float64  `json:"frame_time"`
	DurationSeconds float64  `json:"duration_seconds"`
	Joints          []string `json:"joints"` // pre-order joint names
	Source          string   `json:"source,omitempty"`
}

// RetryableError marks a failure worth retrying: transport errors and 5xx
// responses. Callers detect it with errors.As.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// PutClip creates or replaces a clip record.
func (c *Client) PutClip(ctx context.Context, id string, rec ClipRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal clip: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/clips/"+id, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &RetryableError{Err: fmt.Errorf("put clip: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("put clip %s: status %d: %s", id, resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 {
			return &RetryableError{Err: err}
		}
		return err
	}
	return nil
}

// DeleteClip removes a clip record.
func (c *Client) DeleteClip(ctx context.Context, id string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/clips/"+id, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &RetryableError{Err: fmt.Errorf("delete clip: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("delete clip %s: status %d: %s", id, resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 {
			return &RetryableError{Err: err}
		}
		return err
	}
	return nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
