package redfish

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/melih-ucgun/clonectl/internal/tree"
)

const (
	serviceRoot       = "/redfish/v1/"
	sessionCollection = "/redfish/v1/SessionService/Sessions/"
	resourceDirectory = "/redfish/v1/ResourceDirectory/"
	maxCrawl          = 2000
)

// HTTPConfig holds what is needed to reach a controller.
type HTTPConfig struct {
	Address  string
	Username string
	Password string
	Insecure bool
	Timeout  time.Duration
}

// HTTPClient talks Redfish over HTTPS with a session token.
type HTTPClient struct {
	cfg     HTTPConfig
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	token   string
	session string
	index   map[string][]string // type name (lower) -> paths
	pending []PendingChange
}

// NewHTTPClient builds a client; Reconnect opens the session.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	base := strings.TrimRight(cfg.Address, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure}, // #nosec G402 -- controllers ship self-signed certificates
	}
	return &HTTPClient{
		cfg:     cfg,
		baseURL: base,
		http:    &http.Client{Transport: tr, Timeout: cfg.Timeout},
	}
}

// Reconnect logs in again, dropping any cached state from the old session.
func (c *HTTPClient) Reconnect(ctx context.Context) error {
	body := tree.Tree{"UserName": c.cfg.Username, "Password": c.cfg.Password}
	resp, headers, err := c.do(ctx, http.MethodPost, sessionCollection, body, false)
	if err != nil {
		return fmt.Errorf("login to %s failed: %w", c.cfg.Address, err)
	}
	token := headers.Get("X-Auth-Token")
	if token == "" {
		return fmt.Errorf("login to %s returned no session token (status %d)", c.cfg.Address, resp.Status)
	}
	c.mu.Lock()
	c.token = token
	c.session = headers.Get("Location")
	c.index = nil
	c.mu.Unlock()
	return nil
}

// Close ends the session.
func (c *HTTPClient) Close(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == "" {
		return nil
	}
	_, _, err := c.do(ctx, http.MethodDelete, session, nil, true)
	return err
}

func (c *HTTPClient) Select(ctx context.Context, typeName string) ([]Instance, error) {
	index, err := c.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	var out []Instance
	for _, p := range index[strings.ToLower(typeName)] {
		t, err := c.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, Instance{Path: NormalizePath(p), Type: t.GetString("@odata.type"), Tree: t})
	}
	return out, nil
}

func (c *HTTPClient) Read(ctx context.Context, path string) (tree.Tree, error) {
	resp, _, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *HTTPClient) Write(ctx context.Context, path string, body tree.Tree, method string) error {
	resp, _, err := c.do(ctx, method, path, body, true)
	if err != nil {
		return err
	}
	c.notePending(path, resp.Body)
	return nil
}

func (c *HTTPClient) Create(ctx context.Context, path string, body tree.Tree) (Response, error) {
	resp, headers, err := c.do(ctx, http.MethodPost, path, body, true)
	if err != nil {
		return Response{}, err
	}
	resp.Location = relativeLocation(headers.Get("Location"))
	c.notePending(path, resp.Body)
	return resp, nil
}

func (c *HTTPClient) Delete(ctx context.Context, path string) error {
	_, _, err := c.do(ctx, http.MethodDelete, path, nil, true)
	return err
}

func (c *HTTPClient) InvokeAction(ctx context.Context, path, action string, body tree.Tree) (Response, error) {
	target := NormalizePath(path) + "Actions/" + action + "/"
	if body == nil {
		body = tree.Tree{}
	}
	resp, _, err := c.do(ctx, http.MethodPost, target, body, true)
	if err != nil {
		return Response{}, err
	}
	c.notePending(path, resp.Body)
	return resp, nil
}

// Status reports the resets requested by the controller in replies to this
// session's writes.
func (c *HTTPClient) Status(ctx context.Context) ([]PendingChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PendingChange(nil), c.pending...), nil
}

func (c *HTTPClient) notePending(path string, body tree.Tree) {
	for _, id := range messageIDs(body) {
		var scope string
		switch {
		case strings.Contains(id, "SystemResetRequired"):
			scope = ScopeSystem
		case strings.Contains(id, "ResetRequired"), strings.Contains(id, "ResetInProgress"):
			scope = ScopeManager
		default:
			continue
		}
		c.mu.Lock()
		c.pending = append(c.pending, PendingChange{Resource: path, Description: id, Scope: scope})
		c.mu.Unlock()
	}
}

func messageIDs(body tree.Tree) []string {
	var ids []string
	collect := func(v any) {
		list, _ := v.([]any)
		for _, item := range list {
			if m, ok := tree.AsTree(item); ok {
				if id := m.GetString("MessageId"); id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	if v, ok := body.Get("@Message.ExtendedInfo"); ok {
		collect(v)
	}
	if v, ok := body.Get("error", "@Message.ExtendedInfo"); ok {
		collect(v)
	}
	return ids
}

// loadIndex maps type names to paths using the resource directory, falling
// back to a crawl of @odata.id links from the service root.
func (c *HTTPClient) loadIndex(ctx context.Context) (map[string][]string, error) {
	c.mu.Lock()
	if c.index != nil {
		idx := c.index
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	index := make(map[string][]string)
	dir, err := c.Read(ctx, resourceDirectory)
	if err == nil {
		list, _ := dir["Instances"].([]any)
		for _, item := range list {
			m, ok := tree.AsTree(item)
			if !ok {
				continue
			}
			name := strings.ToLower(TypeName(m.GetString("@odata.type")))
			index[name] = append(index[name], m.GetString("@odata.id"))
		}
	} else {
		if err := c.crawl(ctx, index); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	c.index = index
	c.mu.Unlock()
	return index, nil
}

func (c *HTTPClient) crawl(ctx context.Context, index map[string][]string) error {
	queue := []string{serviceRoot}
	seen := map[string]bool{serviceRoot: true}
	for len(queue) > 0 && len(seen) < maxCrawl {
		p := queue[0]
		queue = queue[1:]
		t, err := c.Read(ctx, p)
		if err != nil {
			continue
		}
		if typ := t.GetString("@odata.type"); typ != "" {
			name := strings.ToLower(TypeName(typ))
			index[name] = append(index[name], p)
		}
		for _, link := range links(t) {
			link = NormalizePath(link)
			if !seen[link] && strings.HasPrefix(link, serviceRoot) && !strings.Contains(link, "#") {
				seen[link] = true
				queue = append(queue, link)
			}
		}
	}
	return nil
}

func links(t tree.Tree) []string {
	var out []string
	var walk func(v any, top bool)
	walk = func(v any, top bool) {
		switch val := v.(type) {
		case tree.Tree:
			for k, sub := range val {
				if k == "@odata.id" && !top {
					if s, ok := sub.(string); ok {
						out = append(out, s)
					}
					continue
				}
				walk(sub, false)
			}
		case []any:
			for _, item := range val {
				walk(item, false)
			}
		}
	}
	walk(t, true)
	return out
}

// StatusError is a non-2xx reply from the controller.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   tree.Tree
}

func (e *StatusError) Error() string {
	msg := strings.Join(messageIDs(e.Body), ", ")
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, msg)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body tree.Tree, auth bool) (Response, http.Header, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Response{}, nil, fmt.Errorf("failed to marshal body for %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Response{}, nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token != "" {
			req.Header.Set("X-Auth-Token", token)
		} else {
			req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := Response{Status: resp.StatusCode, Body: tree.Tree{}}
	if len(bytes.TrimSpace(data)) > 0 {
		if t, err := tree.FromJSON(data); err == nil {
			out.Body = t
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return out, resp.Header, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, resp.Header, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: out.Body}
	}
	return out, resp.Header, nil
}

func relativeLocation(loc string) string {
	if i := strings.Index(loc, serviceRoot); i >= 0 {
		return NormalizePath(loc[i:])
	}
	return loc
}
