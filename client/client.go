// client/client.go
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revhash/internal/errors"
	"revhash/internal/manifest"
)

// Client reads build history from a running revhash server. It satisfies
// api.BuildBox, so the CLI can inspect local and remote history alike.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// Build operations
func (c *Client) List() ([]*manifest.Manifest, error) {
	var builds []*manifest.Manifest
	if err := c.get("/api/builds", &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

func (c *Client) Get(id string) (*manifest.Manifest, error) {
	var m manifest.Manifest
	if err := c.get("/api/builds/"+url.PathEscape(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Latest() (*manifest.Manifest, error) {
	return c.Get("latest")
}

// Diff asks the server to compare build from with build to. An empty to
// means the latest build.
func (c *Client) Diff(from, to string) (*manifest.DiffResult, error) {
	path := "/api/builds/" + url.PathEscape(from) + "/diff"
	if to != "" {
		path += "?to=" + url.QueryEscape(to)
	}

	var d manifest.DiffResult
	if err := c.get(path, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// get decodes the JSON body of a GET into v. Error bodies written by the
// server are returned as *errors.Error so callers can check their type.
func (c *Client) get(path string, v any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errors.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Type != "" {
			return &apiErr
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
