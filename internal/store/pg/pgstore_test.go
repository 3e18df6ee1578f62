package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/records"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return New(db), mock
}

func TestCreateAccountDuplicateEmailConflicts(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectExec("insert into accounts").
		WithArgs("acct-1", "ana@example.com", "Ana", "", "normal", "normalUser", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Create(context.Background(), &auth.Account{
		ID: "acct-1", Email: "ana@example.com", Name: "Ana", Type: auth.AccountNormal,
		Role: auth.RoleNormalUser, PasswordHash: "hash", CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cols := []string{"id", "email", "name", "company_name", "account_type", "role", "password_hash", "created_at", "updated_at"}
	mock.ExpectQuery("select .* from accounts where email").
		WithArgs("ops@acme.io").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("acct-2", "ops@acme.io", "", "Acme", "company", "companyUser", "hash", created, created))
	mock.ExpectQuery("select .* from accounts where email").
		WithArgs("nobody@acme.io").
		WillReturnRows(sqlmock.NewRows(cols))

	acc, err := store.FindByEmail(context.Background(), "ops@acme.io")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if acc.Role != auth.RoleCompanyUser || acc.CompanyName != "Acme" || !acc.CreatedAt.Equal(created) {
		t.Fatalf("unexpected account %+v", acc)
	}
	if _, err := store.FindByEmail(context.Background(), "nobody@acme.io"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePasswordMissingAccount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("update accounts set password_hash").
		WithArgs("ghost", "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.UpdatePassword(context.Background(), "ghost", "hash"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertClientDuplicateEmailConflicts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("insert into clients").
		WithArgs("c1", "acct-1", "Acme", "buyer@acme.io", "enterprise", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.InsertClient(context.Background(), records.Client{
		ID: "c1", OwnerID: "acct-1", Name: "Acme", Email: "buyer@acme.io", ClientType: "enterprise",
	})
	if !errors.Is(err, records.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindClientIsOwnerScoped(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select .* from clients\\s+where owner_id = \\$1 and id = \\$2").
		WithArgs("acct-bob", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "email", "client_type", "created_at", "updated_at"}))

	if _, err := store.FindClient(context.Background(), "acct-bob", "c1"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateClientNotOwnedReportsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("update clients set").
		WithArgs("acct-bob", "c1", "Stolen", "buyer@acme.io", "enterprise", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateClient(context.Background(), records.Client{
		ID: "c1", OwnerID: "acct-bob", Name: "Stolen", Email: "buyer@acme.io", ClientType: "enterprise",
	})
	if !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProjectsScansOptionalClient(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	cols := []string{"id", "owner_id", "name", "description", "status", "start_date", "end_date", "priority", "client_id", "created_at", "updated_at"}
	mock.ExpectQuery("select .* from projects\\s+where owner_id = \\$1\\s+order by id").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "acct-1", "Website", "", "pending", "", "", "", nil, now, now).
			AddRow("p2", "acct-1", "Audit", "yearly", "in-progress", "2026-01-01", "2026-02-01", "high", "c1", now, now))

	projects, err := store.ListProjects(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].ClientID != "" || projects[1].ClientID != "c1" {
		t.Fatalf("unexpected client ids: %q %q", projects[0].ClientID, projects[1].ClientID)
	}
	if projects[1].Status != records.StatusInProgress || projects[1].Priority != records.PriorityHigh {
		t.Fatalf("unexpected project %+v", projects[1])
	}
}

func TestDeleteProjectNotOwnedReportsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from projects where owner_id = \\$1 and id = \\$2").
		WithArgs("acct-bob", "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from projects where owner_id = \\$1 and id = \\$2").
		WithArgs("acct-alice", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.DeleteProject(context.Background(), "acct-bob", "p1"); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteProject(context.Background(), "acct-alice", "p1"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	fsys := Migrations()
	for _, name := range []string{"0001_init.up.sql", "0001_init.down.sql"} {
		if _, err := fsys.Open(name); err != nil {
			t.Fatalf("missing migration %s: %v", name, err)
		}
	}
}
