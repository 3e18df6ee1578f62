package pg

import (
	"context"
	"database/sql"
	"errors"

	"clientdesk.org/internal/records"
)

const (
	clientColumns  = `id, owner_id, name, email, client_type, created_at, updated_at`
	projectColumns = `id, owner_id, name, description, status, start_date, end_date, priority, client_id, created_at, updated_at`
)

func (s *Store) InsertClient(ctx context.Context, c records.Client) error {
	_, err := s.db.ExecContext(ctx, `
		insert into clients (`+clientColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.OwnerID, c.Name, c.Email, c.ClientType, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return records.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) FindClient(ctx context.Context, ownerID, id string) (records.Client, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+clientColumns+` from clients
		where owner_id = $1 and id = $2
	`, ownerID, id)
	return scanClient(row)
}

func (s *Store) ListClients(ctx context.Context, ownerID string) ([]records.Client, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+clientColumns+` from clients
		where owner_id = $1
		order by id
	`, ownerID)
	if err != nil {
		return nil, err
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateClient(ctx context.Context, c records.Client) error {
	res, err := s.db.ExecContext(ctx, `
		update clients set name = $3, email = $4, client_type = $5, updated_at = $6
		where owner_id = $1 and id = $2
	`, c.OwnerID, c.ID, c.Name, c.Email, c.ClientType, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return records.ErrConflict
		}
		return err
	}
	return expectOne(res, records.ErrNotFound)
}

func (s *Store) DeleteClient(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from clients where owner_id = $1 and id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	return expectOne(res, records.ErrNotFound)
}

func (s *Store) InsertProject(ctx context.Context, p records.Project) error {
	_, err := s.db.ExecContext(ctx, `
		insert into projects (`+projectColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.OwnerID, p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate,
		string(p.Priority), nullIfEmpty(p.ClientID), p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) FindProject(ctx context.Context, ownerID, id string) (records.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+projectColumns+` from projects
		where owner_id = $1 and id = $2
	`, ownerID, id)
	return scanProject(row)
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]records.Project, error) {
	return s.queryProjects(ctx, `
		select `+projectColumns+` from projects
		where owner_id = $1
		order by id
	`, ownerID)
}

func (s *Store) ListProjectsByClient(ctx context.Context, ownerID, clientID string) ([]records.Project, error) {
	return s.queryProjects(ctx, `
		select `+projectColumns+` from projects
		where owner_id = $1 and client_id = $2
		order by id
	`, ownerID, clientID)
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]records.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateProject(ctx context.Context, p records.Project) error {
	res, err := s.db.ExecContext(ctx, `
		update projects set name = $3, description = $4, status = $5, start_date = $6, end_date = $7,
			priority = $8, client_id = $9, updated_at = $10
		where owner_id = $1 and id = $2
	`, p.OwnerID, p.ID, p.Name, p.Description, string(p.Status), p.StartDate, p.EndDate,
		string(p.Priority), nullIfEmpty(p.ClientID), p.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOne(res, records.ErrNotFound)
}

func (s *Store) DeleteProject(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from projects where owner_id = $1 and id = $2`, ownerID, id)
	if err != nil {
		return err
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
		return records.Client{}, err
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
		return records.Project{}, err
	}
	p.Status = records.Status(status)
	p.Priority = records.Priority(priority)
	p.ClientID = clientID.String
	return p, nil
}
