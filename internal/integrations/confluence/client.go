package confluence

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

// Client talks to the Confluence v2 REST API.
type Client struct {
	siteURL string
	apiURL  string
	auth    string
	hc      *http.Client
}

func NewClient(siteURL, userEmail, apiToken string) *Client {
	siteURL = strings.TrimRight(siteURL, "/")
	return &Client{
		siteURL: siteURL,
		apiURL:  siteURL + "/wiki/api/v2",
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(userEmail+":"+apiToken)),
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Page is a created or updated Confluence page.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// PageInfo is the current state of an existing page.
type PageInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

func (c *Client) do(ctx context.Context, method, u string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return resp.StatusCode, fmt.Errorf("confluence http %d: %s", resp.StatusCode, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) CreatePage(ctx context.Context, spaceID, title, content, parentID string) (*Page, error) {
	body := map[string]any{
		"spaceId": spaceID,
		"status":  "current",
		"title":   title,
		"body": map[string]string{
			"representation": "storage",
			"value":          content,
		},
	}
	if parentID != "" {
		body["parentId"] = parentID
	}

	var created struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if _, err := c.do(ctx, http.MethodPost, c.apiURL+"/pages", body, &created); err != nil {
		return nil, err
	}
	return &Page{
		ID:    created.ID,
		Title: created.Title,
		URL:   fmt.Sprintf("%s/wiki/spaces/%s/pages/%s", c.siteURL, spaceID, created.ID),
	}, nil
}

func (c *Client) UpdatePage(ctx context.Context, pageID, title, content string, version int) (*Page, error) {
	body := map[string]any{
		"id":     pageID,
		"status": "current",
		"title":  title,
		"body": map[string]string{
			"representation": "storage",
			"value":          content,
		},
		"version": map[string]int{"number": version + 1},
	}

	var updated struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if _, err := c.do(ctx, http.MethodPut, c.apiURL+"/pages/"+pageID, body, &updated); err != nil {
		return nil, err
	}
	return &Page{
		ID:    updated.ID,
		Title: updated.Title,
		URL:   fmt.Sprintf("%s/wiki/pages/%s", c.siteURL, updated.ID),
	}, nil
}

// GetPage returns nil without error when the page no longer exists, so a
// deleted page can be re-created.
func (c *Client) GetPage(ctx context.Context, pageID string) (*PageInfo, error) {
	var info PageInfo
	status, err := c.do(ctx, http.MethodGet, c.apiURL+"/pages/"+pageID, nil, &info)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) SpaceIDByKey(ctx context.Context, spaceKey string) (string, error) {
	u := c.apiURL + "/spaces?keys=" + url.QueryEscape(spaceKey)

	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if _, err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", nil
	}
	return out.Results[0].ID, nil
}
