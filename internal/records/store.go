package records

import "context"

// Store persists clients and projects. Every lookup, update and delete is filtered by owner.
// Implementations return ErrNotFound when no owned row matches and ErrConflict when the
// unique client email constraint rejects a write.
type Store interface {
	InsertClient(ctx context.Context, c Client) error
	FindClient(ctx context.Context, ownerID, id string) (Client, error)
	ListClients(ctx context.Context, ownerID string) ([]Client, error)
	UpdateClient(ctx context.Context, c Client) error
	DeleteClient(ctx context.Context, ownerID, id string) error

	InsertProject(ctx context.Context, p Project) error
	FindProject(ctx context.Context, ownerID, id string) (Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]Project, error)
	ListProjectsByClient(ctx context.Context, ownerID, clientID string) ([]Project, error)
	UpdateProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, ownerID, id string) error

	Ping(ctx context.Context) error
}
