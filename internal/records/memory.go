package records

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store with in-process concurrency safety.
// Client email uniqueness is enforced inside the write lock.
type MemoryStore struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	projects map[string]*Project
	emails   map[string]string // email -> client id
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:  make(map[string]*Client),
		projects: make(map[string]*Project),
		emails:   make(map[string]string),
	}
}

func (s *MemoryStore) InsertClient(ctx context.Context, c Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.emails[c.Email]; taken {
		return ErrConflict
	}
	c.Projects = nil
	s.clients[c.ID] = &c
	s.emails[c.Email] = c.ID
	return nil
}

func (s *MemoryStore) FindClient(ctx context.Context, ownerID, id string) (Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok || c.OwnerID != ownerID {
		return Client{}, ErrNotFound
	}
	return *c, nil
}

func (s *MemoryStore) ListClients(ctx context.Context, ownerID string) ([]Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Client, 0)
	for _, c := range s.clients {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateClient(ctx context.Context, c Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.clients[c.ID]
	if !ok || cur.OwnerID != c.OwnerID {
		return ErrNotFound
	}
	if c.Email != cur.Email {
		if _, taken := s.emails[c.Email]; taken {
			return ErrConflict
		}
		delete(s.emails, cur.Email)
		s.emails[c.Email] = c.ID
	}
	c.Projects = nil
	c.CreatedAt = cur.CreatedAt
	*cur = c
	return nil
}

func (s *MemoryStore) DeleteClient(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.emails, c.Email)
	delete(s.clients, id)
	return nil
}

func (s *MemoryStore) InsertProject(ctx context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = &p
	return nil
}

func (s *MemoryStore) FindProject(ctx context.Context, ownerID, id string) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok || p.OwnerID != ownerID {
		return Project{}, ErrNotFound
	}
	return *p, nil
}

func (s *MemoryStore) ListProjects(ctx context.Context, ownerID string) ([]Project, error) {
	return s.listProjects(func(p *Project) bool { return p.OwnerID == ownerID })
}

func (s *MemoryStore) ListProjectsByClient(ctx context.Context, ownerID, clientID string) ([]Project, error) {
	return s.listProjects(func(p *Project) bool { return p.OwnerID == ownerID && p.ClientID == clientID })
}

func (s *MemoryStore) listProjects(keep func(*Project) bool) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0)
	for _, p := range s.projects {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[p.ID]
	if !ok || cur.OwnerID != p.OwnerID {
		return ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	*cur = p
	return nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
