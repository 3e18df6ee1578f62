package records

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/stream"
)

var (
	alice = auth.Identity{AccountID: "acct-alice", Role: auth.RoleNormalUser}
	bob   = auth.Identity{AccountID: "acct-bob", Role: auth.RoleCompanyUser}
)

func strp(s string) *string { return &s }

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), opts...)
}

func TestZeroIdentityIsRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListClients(ctx, auth.Identity{})
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.CreateClient(ctx, auth.Identity{}, NewClient{Name: "A", Email: "a@x.io", ClientType: "retail"})
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.DeleteProject(ctx, auth.Identity{}, "p1")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestClientTenancyIsolation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateClient(ctx, alice, NewClient{Name: "Acme", Email: "Buyer@Acme.io", ClientType: "enterprise"})
	require.NoError(t, err)
	require.Equal(t, "buyer@acme.io", c.Email)
	require.Equal(t, alice.AccountID, c.OwnerID)

	list, err := svc.ListClients(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.GetClient(ctx, bob, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateClient(ctx, bob, c.ID, ClientPatch{Name: strp("Stolen")})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.DeleteClient(ctx, bob, c.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetClient(ctx, alice, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", got.Name)
}

func TestProjectTenancyIsolation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, alice, NewProject{Name: "Website"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, p.Status)

	list, err := svc.ListProjects(ctx, bob)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.GetProject(ctx, bob, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateProject(ctx, bob, p.ID, ProjectPatch{Name: strp("Mine now")})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateProjectStatus(ctx, bob, p.ID, "closed")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.DeleteProject(ctx, bob, p.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := svc.GetProject(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Website", got.Name)
	require.Equal(t, StatusPending, got.Status)
}

func TestCreateClientValidation(t *testing.T) {
	svc := newTestService(t)
	cases := map[string]NewClient{
		"missing name":  {Email: "a@x.io", ClientType: "retail"},
		"missing email": {Name: "A", ClientType: "retail"},
		"bad email":     {Name: "A", Email: "not-an-email", ClientType: "retail"},
		"missing type":  {Name: "A", Email: "a@x.io"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateClient(context.Background(), alice, in)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestClientEmailIsGloballyUnique(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateClient(ctx, alice, NewClient{Name: "A", Email: "shared@x.io", ClientType: "retail"})
	require.NoError(t, err)
	_, err = svc.CreateClient(ctx, bob, NewClient{Name: "B", Email: "SHARED@x.io", ClientType: "retail"})
	require.ErrorIs(t, err, ErrConflict)

	other, err := svc.CreateClient(ctx, bob, NewClient{Name: "B", Email: "b@x.io", ClientType: "retail"})
	require.NoError(t, err)
	_, err = svc.UpdateClient(ctx, bob, other.ID, ClientPatch{Email: strp("shared@x.io")})
	require.ErrorIs(t, err, ErrConflict)
}

func TestConcurrentClientCreateYieldsOneWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	const n = 32
	var ok, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := alice
			if i%2 == 1 {
				caller = bob
			}
			_, err := svc.CreateClient(ctx, caller, NewClient{Name: "Race", Email: "race@x.io", ClientType: "retail"})
			switch {
			case err == nil:
				ok.Add(1)
			case err == ErrConflict:
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()
	require.EqualValues(t, 1, ok.Load())
	require.EqualValues(t, n-1, conflicts.Load())
}

func TestUpdateClientBlankFieldsKeepStoredValues(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c, err := svc.CreateClient(ctx, alice, NewClient{Name: "Acme", Email: "a@acme.io", ClientType: "enterprise"})
	require.NoError(t, err)

	updated, err := svc.UpdateClient(ctx, alice, c.ID, ClientPatch{Name: strp("  "), Email: strp(""), ClientType: strp("smb")})
	require.NoError(t, err)
	require.Equal(t, "Acme", updated.Name)
	require.Equal(t, "a@acme.io", updated.Email)
	require.Equal(t, "smb", updated.ClientType)
}

func TestUpdateProjectAppliesPresentFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, alice, NewProject{Name: "Website", Description: "landing page", Priority: "high", StartDate: "2026-01-01"})
	require.NoError(t, err)

	updated, err := svc.UpdateProject(ctx, alice, p.ID, ProjectPatch{
		Name:        strp(""),
		Description: strp(""),
		Priority:    strp("med"),
		Status:      strp("done"),
	})
	require.NoError(t, err)
	require.Equal(t, "Website", updated.Name)
	require.Empty(t, updated.Description)
	require.Equal(t, PriorityMedium, updated.Priority)
	require.Equal(t, StatusCompleted, updated.Status)
	require.Equal(t, "2026-01-01", updated.StartDate)

	_, err = svc.UpdateProject(ctx, alice, p.ID, ProjectPatch{Priority: strp("urgent")})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestUpdateProjectStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreateProject(ctx, alice, NewProject{Name: "Website", Status: "in-progress"})
	require.NoError(t, err)

	_, err = svc.UpdateProjectStatus(ctx, alice, p.ID, "bogus")
	require.ErrorIs(t, err, ErrInvalidArgument)
	got, err := svc.GetProject(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, got.Status)

	_, err = svc.UpdateProjectStatus(ctx, alice, "missing", "bogus")
	require.ErrorIs(t, err, ErrInvalidArgument, "status is checked before lookup")

	closed, err := svc.UpdateProjectStatus(ctx, alice, p.ID, "closed")
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)
	reopened, err := svc.UpdateProjectStatus(ctx, alice, p.ID, "pending")
	require.NoError(t, err)
	require.Equal(t, StatusPending, reopened.Status)
}

func TestCreateProjectRequiresOwnedClient(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bobs, err := svc.CreateClient(ctx, bob, NewClient{Name: "B", Email: "b@x.io", ClientType: "retail"})
	require.NoError(t, err)

	_, err = svc.CreateProject(ctx, alice, NewProject{Name: "Sneaky", ClientID: bobs.ID})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateProject(ctx, alice, NewProject{Name: ""})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.CreateProject(ctx, alice, NewProject{Name: "X", Status: "someday"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListClientsResolvesProjects(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c, err := svc.CreateClient(ctx, alice, NewClient{Name: "Acme", Email: "a@acme.io", ClientType: "enterprise"})
	require.NoError(t, err)
	first, err := svc.CreateProject(ctx, alice, NewProject{Name: "One", ClientID: c.ID})
	require.NoError(t, err)
	second, err := svc.CreateProject(ctx, alice, NewProject{Name: "Two", ClientID: c.ID})
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, alice, NewProject{Name: "Loose"})
	require.NoError(t, err)

	clients, err := svc.ListClients(ctx, alice)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	require.Len(t, clients[0].Projects, 2)
	require.Equal(t, first.ID, clients[0].Projects[0].ID)
	require.Equal(t, second.ID, clients[0].Projects[1].ID)
}

func TestDeleteClientLeavesProjectsDangling(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c, err := svc.CreateClient(ctx, alice, NewClient{Name: "Acme", Email: "a@acme.io", ClientType: "enterprise"})
	require.NoError(t, err)
	p, err := svc.CreateProject(ctx, alice, NewProject{Name: "One", ClientID: c.ID})
	require.NoError(t, err)

	ack, err := svc.DeleteClient(ctx, alice, c.ID)
	require.NoError(t, err)
	require.Equal(t, Ack{ID: c.ID, Deleted: true}, ack)

	got, err := svc.GetProject(ctx, alice, p.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ClientID)

	_, err = svc.DeleteClient(ctx, alice, c.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// the email is free again once the client is gone
	_, err = svc.CreateClient(ctx, bob, NewClient{Name: "Acme", Email: "a@acme.io", ClientType: "enterprise"})
	require.NoError(t, err)
}

func TestMutationsPublishOwnerEvents(t *testing.T) {
	hub := stream.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := hub.Subscribe(ctx, alice.AccountID)

	svc := newTestService(t, WithPublisher(hub))
	c, err := svc.CreateClient(ctx, alice, NewClient{Name: "Acme", Email: "a@acme.io", ClientType: "enterprise"})
	require.NoError(t, err)

	select {
	case evt := <-events:
		require.Equal(t, "client", evt.Kind)
		require.Equal(t, "create", evt.Op)
		require.Equal(t, c.ID, evt.ID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestParseStatusAndPriority(t *testing.T) {
	s, err := ParseStatus(" In-Progress ")
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, s)
	s, err = ParseStatus("done")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, s)
	_, err = ParseStatus("")
	require.ErrorIs(t, err, ErrInvalidArgument)

	p, err := ParsePriority("")
	require.NoError(t, err)
	require.Empty(t, p)
	p, err = ParsePriority("LOW")
	require.NoError(t, err)
	require.Equal(t, PriorityLow, p)
}
