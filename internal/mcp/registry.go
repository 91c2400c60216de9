// Package mcp manages the MCP tool servers available to the chat agent.
//
// It has two halves:
//
//   - Registry: the persistent list of user-configured MCP servers
//     (id, name, URL, enabled flag, discovered tool names), stored as a
//     JSON file and edited through the REST API.
//   - Host: the live connection manager that attaches enabled servers to
//     the Genkit agent and tracks per-server connection state.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/jovyan/nbagent/internal/log"
)

// Sentinel errors for registry operations.
var (
	// ErrServerNotFound indicates no server with the given id exists.
	ErrServerNotFound = errors.New("mcp server not found")

	// ErrDuplicateServer indicates a server with the given id already exists.
	ErrDuplicateServer = errors.New("mcp server already exists")

	// ErrInvalidServer indicates the server entry failed validation.
	ErrInvalidServer = errors.New("invalid mcp server")
)

// Server is a single MCP server entry as configured by the user.
// JSON field names match the sidebar's wire format.
type Server struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Enabled bool     `json:"enabled"`
	Tools   []string `json:"tools"`
}

// validate checks the invariants of a server entry.
func (s Server) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidServer)
	}
	if s.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidServer)
	}
	return nil
}

// Registry is the persistent collection of MCP server entries.
//
// In-process access is guarded by a mutex; cross-process access to the
// backing file is guarded by a flock sidecar lock, so a CLI agent and the
// HTTP server can share one registry file.
type Registry struct {
	path   string
	logger log.Logger

	mu      sync.RWMutex
	servers map[string]Server
}

// NewRegistry creates a registry backed by the JSON file at path and loads
// any existing entries. A missing file is treated as an empty registry.
func NewRegistry(path string, logger log.Logger) (*Registry, error) {
	if path == "" {
		return nil, errors.New("registry path is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	r := &Registry{
		path:    path,
		logger:  logger,
		servers: make(map[string]Server),
	}

	if err := r.load(); err != nil {
		return nil, err
	}

	return r, nil
}

// List returns all server entries sorted by name (id as tiebreaker).
func (r *Registry) List() []Server {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Server, 0, len(r.servers))
	for _, s := range r.servers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Enabled returns the enabled server entries, sorted like List.
func (r *Registry) Enabled() []Server {
	all := r.List()
	out := all[:0]
	for _, s := range all {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Get returns the server with the given id.
func (r *Registry) Get(id string) (Server, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.servers[id]
	if !ok {
		return Server{}, fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	return s, nil
}

// Add inserts a new server entry and persists the registry.
// An empty id is filled with a fresh UUID. Duplicate ids are rejected.
func (r *Registry) Add(s Server) (Server, error) {
	if err := s.validate(); err != nil {
		return Server{}, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.servers[s.ID]; exists {
		return Server{}, fmt.Errorf("%w: %s", ErrDuplicateServer, s.ID)
	}

	r.servers[s.ID] = s
	if err := r.save(); err != nil {
		delete(r.servers, s.ID)
		return Server{}, err
	}

	r.logger.Info("added MCP server", "id", s.ID, "name", s.Name, "url", s.URL)
	return s, nil
}

// Update replaces the server with the given id and persists the registry.
// The entry's id is forced to id regardless of the payload.
func (r *Registry) Update(id string, s Server) (Server, error) {
	if err := s.validate(); err != nil {
		return Server{}, err
	}
	s.ID = id

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.servers[id]
	if !exists {
		return Server{}, fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}

	r.servers[id] = s
	if err := r.save(); err != nil {
		r.servers[id] = prev
		return Server{}, err
	}

	r.logger.Info("updated MCP server", "id", id, "name", s.Name)
	return s, nil
}

// Remove deletes the server with the given id and persists the registry.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.servers[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}

	delete(r.servers, id)
	if err := r.save(); err != nil {
		r.servers[id] = prev
		return err
	}

	r.logger.Info("removed MCP server", "id", id, "name", prev.Name)
	return nil
}

// SetTools replaces the discovered tool list of the server with the given
// id and persists the registry. Used after a successful probe.
func (r *Registry) SetTools(id string, tools []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.servers[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}

	prev := s.Tools
	s.Tools = tools
	r.servers[id] = s
	if err := r.save(); err != nil {
		s.Tools = prev
		r.servers[id] = s
		return err
	}
	return nil
}

// load reads the registry file under the cross-process lock.
func (r *Registry) load() error {
	lock := flock.New(r.lockPath())
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking registry file: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("unlocking registry file", "error", err)
		}
	}()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading registry file: %w", err)
	}

	var servers []Server
	if err := json.Unmarshal(data, &servers); err != nil {
		return fmt.Errorf("parsing registry file %s: %w", r.path, err)
	}

	for _, s := range servers {
		r.servers[s.ID] = s
	}
	r.logger.Debug("loaded MCP server registry", "path", r.path, "count", len(servers))
	return nil
}

// save writes the registry file atomically under the cross-process lock.
// Callers must hold r.mu.
func (r *Registry) save() error {
	lock := flock.New(r.lockPath())
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking registry file: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("unlocking registry file", "error", err)
		}
	}()

	servers := make([]Server, 0, len(r.servers))
	for _, s := range r.servers {
		servers = append(servers, s)
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].ID < servers[j].ID })

	data, err := json.MarshalIndent(servers, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	// Write-then-rename so readers never observe a partial file.
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing registry file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
}

func (r *Registry) lockPath() string {
	return r.path + ".lock"
}
