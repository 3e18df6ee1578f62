package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clientdesk.org/internal/records"
)

const (
	clientColumns  = `id, owner_id, name, email, client_type, created_at, updated_at`
	projectColumns = `id, owner_id, name, description, status, start_date, end_date, priority, client_id, created_at, updated_at`
)

func (s *Store) InsertClient(ctx context.Context, c records.Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.OwnerID, c.Name, c.Email, c.ClientType, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return records.ErrConflict
		}
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (s *Store) FindClient(ctx context.Context, ownerID, id string) (records.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE owner_id = ? AND id = ?`, ownerID, id)
	return scanClient(row)
}

func (s *Store) ListClients(ctx context.Context, ownerID string) ([]records.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	result := make([]records.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) UpdateClient(ctx context.Context, c records.Client) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients SET name = ?, email = ?, client_type = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`, c.Name, c.Email, c.ClientType, c.UpdatedAt, c.OwnerID, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return records.ErrConflict
		}
		return fmt.Errorf("failed to update client: %w", err)
	}
	return expectOne(res, records.ErrNotFound)
}

func (s *Store) DeleteClient(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return expectOne(res, records.ErrNotFound)
}

func (s *Store) InsertProject(ctx context.Context, p records.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.OwnerID, p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate,
		string(p.Priority), nullIfEmpty(p.ClientID), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (s *Store) FindProject(ctx context.Context, ownerID, id string) (records.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE owner_id = ? AND id = ?`, ownerID, id)
	return scanProject(row)
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]records.Project, error) {
	return s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY id`, ownerID)
}

func (s *Store) ListProjectsByClient(ctx context.Context, ownerID, clientID string) ([]records.Project, error) {
	return s.queryProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE owner_id = ? AND client_id = ? ORDER BY id`, ownerID, clientID)
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]records.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	result := make([]records.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, p records.Project) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, status = ?, start_date = ?, end_date = ?,
			priority = ?, client_id = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?
	`, p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate,
		string(p.Priority), nullIfEmpty(p.ClientID), p.UpdatedAt, p.OwnerID, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return expectOne(res, records.ErrNotFound)
}

func (s *Store) DeleteProject(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return expectOne(res, records.ErrNotFound)
}

func scanClient(row rowScanner) (records.Client, error) {
	var c records.Client
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.ClientType, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Client{}, records.ErrNotFound
	}
	if err != nil {
		return records.Client{}, fmt.Errorf("failed to scan client: %w", err)
	}
	return c, nil
}

func scanProject(row rowScanner) (records.Project, error) {
	var (
		p        records.Project
		status   string
		priority string
		clientID sql.NullString
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &status, &p.StartDate, &p.EndDate,
		&priority, &clientID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Project{}, records.ErrNotFound
	}
	if err != nil {
		return records.Project{}, fmt.Errorf("failed to scan project: %w", err)
	}
	p.Status = records.Status(status)
	p.Priority = records.Priority(priority)
	p.ClientID = clientID.String
	return p, nil
}
