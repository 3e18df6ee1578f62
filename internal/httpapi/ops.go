package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/records"
)

// opsRequest names one operation and its arguments, e.g.
// {"operation": "addClient", "arguments": {"name": "Acme", "email": "a@acme.io", "clientType": "retail"}}.
type opsRequest struct {
	Operation string          `json:"operation"`
	Arguments json.RawMessage `json:"arguments"`
}

type opsResponse struct {
	Operation string `json:"operation"`
	Data      any    `json:"data"`
}

type operation struct {
	public bool
	run    func(a *API, ctx context.Context, caller auth.Identity, args json.RawMessage) (any, error)
}

type idArgs struct {
	ID string `json:"id"`
}

type registerArgs struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserType    string `json:"userType"`
}

type loginArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addClientArgs struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	ClientType string `json:"clientType"`
}

type addProjectArgs struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Priority    string `json:"priority"`
	ClientID    string `json:"clientId"`
}

type editClientArgs struct {
	ID         string  `json:"id"`
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	ClientType *string `json:"clientType"`
}

type editProjectArgs struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Priority    *string `json:"priority"`
	ClientID    *string `json:"clientId"`
}

type statusArgs struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

var operations = map[string]operation{
	"clients": {run: func(a *API, ctx context.Context, c auth.Identity, _ json.RawMessage) (any, error) {
		return a.records.ListClients(ctx, c)
	}},
	"projects": {run: func(a *API, ctx context.Context, c auth.Identity, _ json.RawMessage) (any, error) {
		return a.records.ListProjects(ctx, c)
	}},
	"currentUser": {run: func(a *API, ctx context.Context, c auth.Identity, _ json.RawMessage) (any, error) {
		return a.auth.CurrentAccount(ctx, c)
	}},
	"registerUser": {public: true, run: func(a *API, ctx context.Context, _ auth.Identity, raw json.RawMessage) (any, error) {
		var args registerArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.auth.Register(ctx, auth.RegisterRequest{
			Type:        auth.AccountType(args.UserType),
			Name:        args.Name,
			CompanyName: args.CompanyName,
			Email:       args.Email,
			Password:    args.Password,
		})
	}},
	"login": {public: true, run: func(a *API, ctx context.Context, _ auth.Identity, raw json.RawMessage) (any, error) {
		var args loginArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.auth.Issue(ctx, args.Email, args.Password)
	}},
	"addClient": {run: func(a *API, ctx context.Context, c auth.Identity, raw json.RawMessage) (any, error) {
		var args addClientArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.records.CreateClient(ctx, c, records.NewClient{Name: args.Name, Email: args.Email, ClientType: args.ClientType})
	}},
	"addProject": {run: func(a *API, ctx context.Context, c auth.Identity, raw json.RawMessage) (any, error) {
		var args addProjectArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.records.CreateProject(ctx, c, records.NewProject{
			Name:        args.Name,
			Description: args.Description,
			Status:      args.Status,
			StartDate:   args.StartDate,
			EndDate:     args.EndDate,
			Priority:    args.Priority,
			ClientID:    args.ClientID,
		})
	}},
	"editClient": {run: func(a *API, ctx context.Context, c auth.Identity, raw json.RawMessage) (any, error) {
		var args editClientArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.records.UpdateClient(ctx, c, args.ID, records.ClientPatch{
			Name: args.Name, Email: args.Email, ClientType: args.ClientType,
		})
	}},
	"editProject": {run: func(a *API, ctx context.Context, c auth.Identity, raw json.RawMessage) (any, error) {
		var args editProjectArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.records.UpdateProject(ctx, c, args.ID, records.ProjectPatch{
			Name:        args.Name,
			Description: args.Description,
			Status:      args.Status,
			StartDate:   args.StartDate,
			EndDate:     args.EndDate,
			Priority:    args.Priority,
			ClientID:    args.ClientID,
		})
	}},
	"updateProjectStatus": {run: func(a *API, ctx context.Context, c auth.Identity, raw json.RawMessage) (any, error) {
		var args statusArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.records.UpdateProjectStatus(ctx, c, args.ID, args.Status)
	}},
	"deleteClient": {run: func(a *API, ctx context.Context, c auth.Identity, raw json.RawMessage) (any, error) {
		var args idArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.records.DeleteClient(ctx, c, args.ID)
	}},
	"deleteProject": {run: func(a *API, ctx context.Context, c auth.Identity, raw json.RawMessage) (any, error) {
		var args idArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return a.records.DeleteProject(ctx, c, args.ID)
	}},
}

// OperationNames lists the operations accepted by POST /v1/ops.
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *API) handleOps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req opsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Operation)
	op, ok := operations[name]
	if !ok {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown operation %q", req.Operation))
		return
	}

	var id auth.Identity
	ctx := r.Context()
	if !op.public {
		ident, token, err := a.authenticate(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		id = ident
		ctx = auth.ContextWithToken(auth.ContextWithIdentity(ctx, id), token)
	}

	data, err := op.run(a, ctx, id, req.Arguments)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opsResponse{Operation: name, Data: data})
}

func decodeArgs(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	if err := decodeStrict(bytes.NewReader(trimmed), dst); err != nil {
		return fmt.Errorf("%w: arguments: %v", errBadRequest, err)
	}
	return nil
}
