// Package storage talks to the object store that holds user uploads: listing,
// public URLs, function invocation and the realtime change feed.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConfigured is returned when no storage URL is set.
var ErrNotConfigured = errors.New("storage provider not configured")

// Object is one entry of a bucket listing. Folder placeholders have no ID.
type Object struct {
	ID        *string        `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
}

func (o Object) IsFolder() bool {
	return o.ID == nil
}

// Client is an HTTP client for a Supabase compatible storage API
type Client struct {
	BaseURL    string
	APIKey     string
	Bucket     string
	httpClient *http.Client
	wsDialer   *websocket.Dialer
}

// NewClient creates a new storage client
func NewClient(baseURL, apiKey, bucket string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		Bucket:  bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		wsDialer: websocket.DefaultDialer,
	}
}

const listPageSize = 1000

// List returns the objects directly under prefix, newest first.
func (c *Client) List(ctx context.Context, prefix string) ([]Object, error) {
	if c.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	var all []Object
	for offset := 0; ; offset += listPageSize {
		page, err := c.listPage(ctx, prefix, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			break
		}
	}
	return all, nil
}

func (c *Client) listPage(ctx context.Context, prefix string, offset int) ([]Object, error) {
	body, err := json.Marshal(map[string]any{
		"prefix": prefix,
		"limit":  listPageSize,
		"offset": offset,
		"sortBy": map[string]string{
			"column": "created_at",
			"order":  "desc",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list request: %w", err)
	}

	listURL := fmt.Sprintf("%s/storage/v1/object/list/%s", c.BaseURL, url.PathEscape(c.Bucket))
	req, err := http.NewRequestWithContext(ctx, "POST", listURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	c.authorize(req, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("storage list returned status %d: %s", resp.StatusCode, string(msg))
	}

	var objects []Object
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return objects, nil
}

// ListTree lists prefix recursively. Returned names are relative to prefix and
// the result is ordered by creation time, newest first.
func (c *Client) ListTree(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	if err := c.walk(ctx, strings.Trim(prefix, "/"), "", &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (c *Client) walk(ctx context.Context, root, rel string, out *[]Object) error {
	dir := root
	if rel != "" {
		dir = root + "/" + rel
	}
	objects, err := c.List(ctx, dir)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		name := obj.Name
		if rel != "" {
			name = rel + "/" + obj.Name
		}
		if obj.IsFolder() {
			if err := c.walk(ctx, root, name, out); err != nil {
				return err
			}
			continue
		}
		obj.Name = name
		*out = append(*out, obj)
	}
	return nil
}

// PublicURL returns the public address of an object path inside the bucket.
func (c *Client) PublicURL(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.BaseURL, url.PathEscape(c.Bucket), strings.Join(segments, "/"))
}

// FunctionError carries the message returned by a failed function call.
type FunctionError struct {
	Function string
	Status   int
	Message  string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s returned status %d: %s", e.Function, e.Status, e.Message)
}

// Invoke calls an edge function with a JSON body. An empty token uses the API key.
func (c *Client) Invoke(ctx context.Context, function, token string, payload any) error {
	if c.BaseURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal function payload: %w", err)
	}

	fnURL := fmt.Sprintf("%s/functions/v1/%s", c.BaseURL, url.PathEscape(function))
	req, err := http.NewRequestWithContext(ctx, "POST", fnURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create function request: %w", err)
	}
	c.authorize(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return &FunctionError{Function: function, Status: resp.StatusCode, Message: errorMessage(msg)}
	}
	return nil
}

func (c *Client) authorize(req *http.Request, token string) {
	if token == "" {
		token = c.APIKey
	}
	req.Header.Set("apikey", c.APIKey)
	req.Header.Set("Authorization", "Bearer "+token)
}

// errorMessage pulls a message out of a JSON error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(body))
}
