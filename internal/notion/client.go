package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/notepress/internal/blocks"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
)

// Client communicates with the Notion HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point at a fake server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// APIError is a non-2xx response from Notion.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api status %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// Retryable reports whether the failure is transient.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type pageResponse struct {
	ID string `json:"id"`
}

// CreatePage creates a page under a parent page and returns the new
// page ID. At most blocks.MaxChildren blocks may be attached at
// creation; use PublishPage for larger trees.
func (c *Client) CreatePage(ctx context.Context, parentPageID, title string, children []blocks.Block) (string, error) {
	if len(children) > blocks.MaxChildren {
		return "", fmt.Errorf("create page: %d children exceeds limit %d", len(children), blocks.MaxChildren)
	}

	payload := map[string]any{
		"parent": map[string]any{"page_id": parentPageID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{
					{"type": "text", "text": map[string]any{"content": title}},
				},
			},
		},
	}
	if len(children) > 0 {
		payload["children"] = children
	}

	var resp pageResponse
	if err := c.do(ctx, http.MethodPost, "/pages", payload, &resp); err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	return resp.ID, nil
}

// AppendBlockChildren appends blocks to a page or container block,
// splitting into batches that respect Notion's per-request limit.
func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []blocks.Block) error {
	for start := 0; start < len(children); start += blocks.MaxChildren {
		end := min(start+blocks.MaxChildren, len(children))
		payload := map[string]any{"children": children[start:end]}
		if err := c.do(ctx, http.MethodPatch, "/blocks/"+blockID+"/children", payload, nil); err != nil {
			return fmt.Errorf("append children [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// PublishPage creates a page carrying the full block tree, appending
// overflow batches after creation.
func (c *Client) PublishPage(ctx context.Context, parentPageID, title string, bs []blocks.Block) (string, error) {
	first := bs
	var rest []blocks.Block
	if len(bs) > blocks.MaxChildren {
		first = bs[:blocks.MaxChildren]
		rest = bs[blocks.MaxChildren:]
	}

	pageID, err := c.CreatePage(ctx, parentPageID, title, first)
	if err != nil {
		return "", err
	}
	if len(rest) > 0 {
		if err := c.AppendBlockChildren(ctx, pageID, rest); err != nil {
			return pageID, err
		}
	}
	return pageID, nil
}

// ArchivePage moves a page to the trash.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	payload := map[string]any{"archived": true}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, payload, nil); err != nil {
		return fmt.Errorf("archive page: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases any resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
