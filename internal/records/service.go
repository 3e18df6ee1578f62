package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clientdesk.org/internal/audit"
	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/ids"
	"clientdesk.org/internal/obs"
	"clientdesk.org/internal/stream"
)

// Publisher receives committed changes. *stream.Hub satisfies it.
type Publisher interface {
	Publish(evt stream.Event)
}

// Service runs client and project operations on behalf of an authenticated caller.
// Every read and write is restricted to records the caller owns.
type Service struct {
	store  Store
	events Publisher
	now    func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithPublisher sends change events to p after each successful mutation.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs Service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func owner(caller auth.Identity) (string, error) {
	if caller.IsZero() {
		return "", ErrUnauthenticated
	}
	return caller.AccountID, nil
}

// ListClients returns the caller's clients, each with its projects resolved.
func (s *Service) ListClients(ctx context.Context, caller auth.Identity) ([]Client, error) {
	ownerID, err := owner(caller)
	if err != nil {
		return nil, err
	}
	clients, err := s.store.ListClients(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	projects, err := s.store.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	byClient := make(map[string][]Project)
	for _, p := range projects {
		if p.ClientID != "" {
			byClient[p.ClientID] = append(byClient[p.ClientID], p)
		}
	}
	for i := range clients {
		clients[i].Projects = byClient[clients[i].ID]
		if clients[i].Projects == nil {
			clients[i].Projects = []Project{}
		}
	}
	return clients, nil
}

// ListProjects returns the caller's projects.
func (s *Service) ListProjects(ctx context.Context, caller auth.Identity) ([]Project, error) {
	ownerID, err := owner(caller)
	if err != nil {
		return nil, err
	}
	projects, err := s.store.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetClient returns one owned client with its projects.
func (s *Service) GetClient(ctx context.Context, caller auth.Identity, id string) (Client, error) {
	ownerID, err := owner(caller)
	if err != nil {
		return Client{}, err
	}
	c, err := s.store.FindClient(ctx, ownerID, id)
	if err != nil {
		return Client{}, storeErr("find client", err)
	}
	projects, err := s.store.ListProjectsByClient(ctx, ownerID, id)
	if err != nil {
		return Client{}, fmt.Errorf("list client projects: %w", err)
	}
	c.Projects = projects
	return c, nil
}

// GetProject returns one owned project.
func (s *Service) GetProject(ctx context.Context, caller auth.Identity, id string) (Project, error) {
	ownerID, err := owner(caller)
	if err != nil {
		return Project{}, err
	}
	p, err := s.store.FindProject(ctx, ownerID, id)
	if err != nil {
		return Project{}, storeErr("find project", err)
	}
	return p, nil
}

// CreateClient stores a new client owned by the caller. Client emails are unique across
// all accounts.
func (s *Service) CreateClient(ctx context.Context, caller auth.Identity, in NewClient) (out Client, err error) {
	defer func() { obs.RecordMutation("client", "create", err) }()
	ownerID, err := owner(caller)
	if err != nil {
		return Client{}, err
	}
	c := Client{
		Name:       strings.TrimSpace(in.Name),
		Email:      normalizeEmail(in.Email),
		ClientType: strings.TrimSpace(in.ClientType),
	}
	if err := validateClient(c); err != nil {
		return Client{}, err
	}
	now := s.now().UTC()
	c.ID = ids.New()
	c.OwnerID = ownerID
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.store.InsertClient(ctx, c); err != nil {
		return Client{}, storeErr("insert client", err)
	}
	c.Projects = []Project{}
	s.committed(ctx, "client", "create", ownerID, c.ID)
	return c, nil
}

// CreateProject stores a new project owned by the caller. A client id, when given, must
// name a client the caller owns.
func (s *Service) CreateProject(ctx context.Context, caller auth.Identity, in NewProject) (out Project, err error) {
	defer func() { obs.RecordMutation("project", "create", err) }()
	ownerID, err := owner(caller)
	if err != nil {
		return Project{}, err
	}
	p := Project{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		StartDate:   strings.TrimSpace(in.StartDate),
		EndDate:     strings.TrimSpace(in.EndDate),
		ClientID:    strings.TrimSpace(in.ClientID),
		Status:      StatusPending,
	}
	if p.Name == "" {
		return Project{}, fmt.Errorf("%w: project name is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Status) != "" {
		if p.Status, err = ParseStatus(in.Status); err != nil {
			return Project{}, err
		}
	}
	if p.Priority, err = ParsePriority(in.Priority); err != nil {
		return Project{}, err
	}
	if err := s.requireOwnedClient(ctx, ownerID, p.ClientID); err != nil {
		return Project{}, err
	}
	now := s.now().UTC()
	p.ID = ids.New()
	p.OwnerID = ownerID
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.store.InsertProject(ctx, p); err != nil {
		return Project{}, storeErr("insert project", err)
	}
	s.committed(ctx, "project", "create", ownerID, p.ID)
	return p, nil
}

// UpdateClient applies the present, non-blank fields of patch to an owned client.
func (s *Service) UpdateClient(ctx context.Context, caller auth.Identity, id string, patch ClientPatch) (out Client, err error) {
	defer func() { obs.RecordMutation("client", "update", err) }()
	ownerID, err := owner(caller)
	if err != nil {
		return Client{}, err
	}
	c, err := s.store.FindClient(ctx, ownerID, id)
	if err != nil {
		return Client{}, storeErr("find client", err)
	}
	if v, ok := present(patch.Name); ok {
		c.Name = v
	}
	if v, ok := present(patch.Email); ok {
		c.Email = normalizeEmail(v)
	}
	if v, ok := present(patch.ClientType); ok {
		c.ClientType = v
	}
	if err := validateClient(c); err != nil {
		return Client{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateClient(ctx, c); err != nil {
		return Client{}, storeErr("update client", err)
	}
	projects, err := s.store.ListProjectsByClient(ctx, ownerID, id)
	if err != nil {
		return Client{}, fmt.Errorf("list client projects: %w", err)
	}
	c.Projects = projects
	s.committed(ctx, "client", "update", ownerID, c.ID)
	return c, nil
}

// UpdateProject applies patch to an owned project.
func (s *Service) UpdateProject(ctx context.Context, caller auth.Identity, id string, patch ProjectPatch) (out Project, err error) {
	defer func() { obs.RecordMutation("project", "update", err) }()
	ownerID, err := owner(caller)
	if err != nil {
		return Project{}, err
	}
	var status Status
	if v, ok := present(patch.Status); ok {
		if status, err = ParseStatus(v); err != nil {
			return Project{}, err
		}
	}
	var priority *Priority
	if patch.Priority != nil {
		pr, err := ParsePriority(*patch.Priority)
		if err != nil {
			return Project{}, err
		}
		priority = &pr
	}
	p, err := s.store.FindProject(ctx, ownerID, id)
	if err != nil {
		return Project{}, storeErr("find project", err)
	}
	if v, ok := present(patch.Name); ok {
		p.Name = v
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.StartDate != nil {
		p.StartDate = strings.TrimSpace(*patch.StartDate)
	}
	if patch.EndDate != nil {
		p.EndDate = strings.TrimSpace(*patch.EndDate)
	}
	if status != "" {
		p.Status = status
	}
	if priority != nil {
		p.Priority = *priority
	}
	if patch.ClientID != nil {
		clientID := strings.TrimSpace(*patch.ClientID)
		if clientID != p.ClientID {
			if err := s.requireOwnedClient(ctx, ownerID, clientID); err != nil {
				return Project{}, err
			}
			p.ClientID = clientID
		}
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return Project{}, storeErr("update project", err)
	}
	s.committed(ctx, "project", "update", ownerID, p.ID)
	return p, nil
}

// UpdateProjectStatus changes only the status of an owned project. The status is checked
// before the store is touched.
func (s *Service) UpdateProjectStatus(ctx context.Context, caller auth.Identity, id, status string) (out Project, err error) {
	defer func() { obs.RecordMutation("project", "status", err) }()
	ownerID, err := owner(caller)
	if err != nil {
		return Project{}, err
	}
	next, err := ParseStatus(status)
	if err != nil {
		return Project{}, err
	}
	p, err := s.store.FindProject(ctx, ownerID, id)
	if err != nil {
		return Project{}, storeErr("find project", err)
	}
	p.Status = next
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return Project{}, storeErr("update project", err)
	}
	s.committed(ctx, "project", "status", ownerID, p.ID)
	return p, nil
}

// DeleteClient removes an owned client. Projects that reference it are kept as they are.
func (s *Service) DeleteClient(ctx context.Context, caller auth.Identity, id string) (ack Ack, err error) {
	defer func() { obs.RecordMutation("client", "delete", err) }()
	ownerID, err := owner(caller)
	if err != nil {
		return Ack{}, err
	}
	if err := s.store.DeleteClient(ctx, ownerID, id); err != nil {
		return Ack{}, storeErr("delete client", err)
	}
	s.committed(ctx, "client", "delete", ownerID, id)
	return Ack{ID: id, Deleted: true}, nil
}

// DeleteProject removes an owned project.
func (s *Service) DeleteProject(ctx context.Context, caller auth.Identity, id string) (ack Ack, err error) {
	defer func() { obs.RecordMutation("project", "delete", err) }()
	ownerID, err := owner(caller)
	if err != nil {
		return Ack{}, err
	}
	if err := s.store.DeleteProject(ctx, ownerID, id); err != nil {
		return Ack{}, storeErr("delete project", err)
	}
	s.committed(ctx, "project", "delete", ownerID, id)
	return Ack{ID: id, Deleted: true}, nil
}

func (s *Service) requireOwnedClient(ctx context.Context, ownerID, clientID string) error {
	if clientID == "" {
		return nil
	}
	if _, err := s.store.FindClient(ctx, ownerID, clientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: client %s", ErrNotFound, clientID)
		}
		return fmt.Errorf("find client: %w", err)
	}
	return nil
}

func (s *Service) committed(ctx context.Context, kind, op, ownerID, id string) {
	_ = audit.LogEvent(ctx, kind+"."+op, map[string]any{kind + "_id": id, "owner_id": ownerID})
	if s.events != nil {
		s.events.Publish(stream.Event{OwnerID: ownerID, Kind: kind, Op: op, ID: id, Timestamp: s.now().UTC()})
	}
}

func validateClient(c Client) error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: client name is required", ErrInvalidArgument)
	case c.Email == "" || !strings.Contains(c.Email, "@"):
		return fmt.Errorf("%w: a valid client email is required", ErrInvalidArgument)
	case c.ClientType == "":
		return fmt.Errorf("%w: client type is required", ErrInvalidArgument)
	}
	return nil
}

// storeErr keeps the sentinel errors intact and wraps everything else with op.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
