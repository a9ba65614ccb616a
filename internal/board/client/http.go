// Package client talks to the tablewatch server on behalf of the board:
// a WebSocket feed for live updates and REST calls for history.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pps-player/tablewatch/internal/table"
	"github.com/pps-player/tablewatch/internal/ws"
)

// HTTPClient makes REST calls to the tablewatch server.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Tables fetches /api/tables.
func (c *HTTPClient) Tables() ([]table.Entry, error) {
	var out []table.Entry
	if err := c.get("/api/tables", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History fetches /api/tables/{name}/history, newest first. A limit of 0
// leaves the choice to the server.
func (c *HTTPClient) History(tableName string, limit int) ([]table.Entry, error) {
	path := "/api/tables/" + url.PathEscape(tableName) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []table.Entry
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health fetches /api/health.
func (c *HTTPClient) Health() (*ws.HealthPayload, error) {
	var h ws.HealthPayload
	if err := c.get("/api/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
