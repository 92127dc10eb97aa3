package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/docsift/internal/models"
)

// apiClient talks to a running docsift server. Used when the stores are held open
// by the server process.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// do sends a request and decodes a JSON response into out. Non-2xx responses
// are returned as errors carrying the server's error message.
func (c *apiClient) do(method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) Search(query string, topK int) ([]*models.SearchHit, error) {
	q := url.Values{"q": {query}}
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}
	var resp struct {
		Results []*models.SearchHit `json:"results"`
	}
	if err := c.do(http.MethodGet, "/api/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *apiClient) Status() (*models.Status, error) {
	var resp struct {
		Status *models.Status `json:"status"`
	}
	if err := c.do(http.MethodGet, "/api/status", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, fmt.Errorf("status missing from response")
	}
	return resp.Status, nil
}

func (c *apiClient) WatchDirectories() ([]string, error) {
	var resp struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(http.MethodGet, "/api/watch/directories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Directories, nil
}

func (c *apiClient) AddWatchDirectory(path string, sync bool) error {
	body := map[string]any{"path": path, "sync": sync}
	return c.do(http.MethodPost, "/api/watch/directories", nil, body, nil)
}

func (c *apiClient) RemoveWatchDirectory(path string) error {
	return c.do(http.MethodDelete, "/api/watch/directories", url.Values{"path": {path}}, nil, nil)
}
