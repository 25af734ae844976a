package redfish

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/melih-ucgun/clonectl/internal/tree"
)

// Call records one mutating request made against a MemoryClient.
type Call struct {
	Method string
	Path   string
	Action string
	Body   tree.Tree
}

// MemoryClient is an in-memory controller used by tests and dry runs.
type MemoryClient struct {
	mu        sync.Mutex
	resources map[string]Instance
	Errors    map[string]error // "METHOD path" -> error
	Pending   []PendingChange
	Calls     []Call
	// ReconnectFailures makes the next N Reconnect calls fail.
	ReconnectFailures int
	Reconnects        int
	nextID            int
}

// NewMemoryClient seeds a client with instances.
func NewMemoryClient(instances ...Instance) *MemoryClient {
	m := &MemoryClient{
		resources: make(map[string]Instance),
		Errors:    make(map[string]error),
		nextID:    100,
	}
	for _, inst := range instances {
		m.Put(inst)
	}
	return m
}

// Put adds or replaces an instance.
func (m *MemoryClient) Put(inst Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst.Path = NormalizePath(inst.Path)
	inst.Tree = tree.Normalize(inst.Tree.Clone())
	if inst.Tree == nil {
		inst.Tree = tree.Tree{}
	}
	inst.Tree["@odata.id"] = inst.Path
	inst.Tree["@odata.type"] = inst.Type
	m.resources[inst.Path] = inst
}

// AddError registers a canned failure for method and path.
func (m *MemoryClient) AddError(method, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method+" "+NormalizePath(path)] = err
}

// Mutations returns the recorded calls, optionally filtered by method.
func (m *MemoryClient) Mutations(methods ...string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(methods) == 0 {
		return append([]Call(nil), m.Calls...)
	}
	var out []Call
	for _, c := range m.Calls {
		for _, meth := range methods {
			if c.Method == meth {
				out = append(out, c)
			}
		}
	}
	return out
}

func (m *MemoryClient) fail(method, path string) error {
	if err, ok := m.Errors[method+" "+NormalizePath(path)]; ok {
		return err
	}
	return nil
}

func (m *MemoryClient) Select(ctx context.Context, typeName string) ([]Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SELECT", "/"+typeName); err != nil {
		return nil, err
	}
	var out []Instance
	for _, inst := range m.resources {
		if strings.EqualFold(TypeName(inst.Type), typeName) {
			out = append(out, Instance{Path: inst.Path, Type: inst.Type, Tree: inst.Tree.Clone()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *MemoryClient) Read(ctx context.Context, path string) (tree.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(http.MethodGet, path); err != nil {
		return nil, err
	}
	inst, ok := m.resources[NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return inst.Tree.Clone(), nil
}

func (m *MemoryClient) Write(ctx context.Context, path string, body tree.Tree, method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Method: method, Path: NormalizePath(path), Body: body.Clone()})
	if err := m.fail(method, path); err != nil {
		return err
	}
	inst, ok := m.resources[NormalizePath(path)]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if method == MethodPut {
		next := body.Clone()
		next["@odata.id"] = inst.Path
		next["@odata.type"] = inst.Type
		inst.Tree = next
	} else {
		inst.Tree = tree.Overlay(inst.Tree, body)
	}
	m.resources[inst.Path] = inst
	return nil
}

func (m *MemoryClient) Create(ctx context.Context, path string, body tree.Tree) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	collection := NormalizePath(path)
	m.Calls = append(m.Calls, Call{Method: http.MethodPost, Path: collection, Body: body.Clone()})
	if err := m.fail(http.MethodPost, collection); err != nil {
		return Response{}, err
	}

	typ := ""
	for p, inst := range m.resources {
		if strings.HasPrefix(p, collection) && p != collection {
			typ = inst.Type
			break
		}
	}
	m.nextID++
	loc := fmt.Sprintf("%s%d/", collection, m.nextID)
	inst := Instance{Path: loc, Type: typ, Tree: body.Clone()}
	inst.Tree["Id"] = fmt.Sprintf("%d", m.nextID)
	inst.Tree["@odata.id"] = loc
	inst.Tree["@odata.type"] = typ
	m.resources[loc] = inst
	return Response{Status: http.StatusCreated, Location: loc, Body: inst.Tree.Clone()}, nil
}

func (m *MemoryClient) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Method: http.MethodDelete, Path: NormalizePath(path)})
	if err := m.fail(http.MethodDelete, path); err != nil {
		return err
	}
	if _, ok := m.resources[NormalizePath(path)]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	delete(m.resources, NormalizePath(path))
	return nil
}

func (m *MemoryClient) InvokeAction(ctx context.Context, path, action string, body tree.Tree) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Method: "ACTION", Path: NormalizePath(path), Action: action, Body: body.Clone()})
	if err := m.fail("ACTION", path); err != nil {
		return Response{}, err
	}
	return Response{Status: http.StatusOK}, nil
}

func (m *MemoryClient) Status(ctx context.Context) ([]PendingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PendingChange(nil), m.Pending...), nil
}

func (m *MemoryClient) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reconnects++
	if m.ReconnectFailures > 0 {
		m.ReconnectFailures--
		return fmt.Errorf("connection refused")
	}
	return nil
}
