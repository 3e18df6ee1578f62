package records

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a project. Any state may move to any other.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusPushed     Status = "pushed"
	StatusClosed     Status = "closed"
)

// Statuses lists the accepted project states in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusPushed, StatusClosed}

// ParseStatus normalises raw into a Status. "done" is accepted as an alias of completed.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s == "done" {
		return StatusCompleted, nil
	}
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, raw)
}

// Priority ranks a project. The empty value means unset.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority normalises raw into a Priority. "med" is accepted as an alias of medium.
func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return "", nil
	case "med":
		return PriorityMedium, nil
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, raw)
}

// Client is a customer record owned by one account.
type Client struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ClientType string    `json:"client_type"`
	Projects   []Project `json:"projects"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Project is a unit of work owned by one account, optionally tied to a client.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Priority    Priority  `json:"priority,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewClient carries the fields of a client to create.
type NewClient struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	ClientType string `json:"client_type"`
}

// NewProject carries the fields of a project to create. Status defaults to pending.
type NewProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Priority    string `json:"priority"`
	ClientID    string `json:"client_id"`
}

// ClientPatch holds a partial client update. Nil fields are left alone, and so are
// blank values because every client field is required.
type ClientPatch struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	ClientType *string `json:"client_type"`
}

// ProjectPatch holds a partial project update. Nil fields are left alone. A blank name is
// ignored; the optional fields are cleared by an empty value.
type ProjectPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Priority    *string `json:"priority"`
	ClientID    *string `json:"client_id"`
}

// Ack confirms a deletion.
type Ack struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func present(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	s := strings.TrimSpace(*v)
	return s, s != ""
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
