package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"clientdesk.org/internal/ids"
	"clientdesk.org/internal/obs"
)

// Service registers accounts, exchanges passwords for credentials and verifies credentials.
type Service struct {
	accounts   AccountStore
	tokens     *Tokens
	bcryptCost int
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithBcryptCost overrides the bcrypt work factor. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) error {
		if cost == 0 {
			return nil
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return fmt.Errorf("auth: bcrypt cost %d out of range", cost)
		}
		s.bcryptCost = cost
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service over the account store and token signer.
func NewService(accounts AccountStore, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if accounts == nil || tokens == nil {
		return nil, errors.New("auth: account store and tokens are required")
	}
	svc := &Service{
		accounts:   accounts,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// RegisterRequest carries self-service registration input.
type RegisterRequest struct {
	Type        AccountType
	Name        string
	CompanyName string
	Email       string
	Password    string
}

// Credential is the result of a successful login.
type Credential struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Account   PublicAccount `json:"account"`
}

// Register creates a company or normal account. The role follows from the type.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (out PublicAccount, err error) {
	defer func() { obs.AuthEvent("register", err) }()
	acc := &Account{
		Email:       NormalizeEmail(req.Email),
		Name:        strings.TrimSpace(req.Name),
		CompanyName: strings.TrimSpace(req.CompanyName),
		Type:        AccountType(strings.ToLower(strings.TrimSpace(string(req.Type)))),
	}
	if acc.Type == "" {
		if acc.CompanyName != "" {
			acc.Type = AccountCompany
		} else {
			acc.Type = AccountNormal
		}
	}
	switch acc.Type {
	case AccountCompany:
		if acc.CompanyName == "" {
			return PublicAccount{}, fmt.Errorf("%w: company name is required for company accounts", ErrInvalidArgument)
		}
		acc.Role = RoleCompanyUser
	case AccountNormal:
		if acc.Name == "" {
			return PublicAccount{}, fmt.Errorf("%w: name is required for normal accounts", ErrInvalidArgument)
		}
		acc.Role = RoleNormalUser
	default:
		return PublicAccount{}, fmt.Errorf("%w: account type must be company or normal", ErrInvalidArgument)
	}
	if err := s.create(ctx, acc, req.Password); err != nil {
		return PublicAccount{}, err
	}
	return acc.Public(), nil
}

// CreateAdmin creates an administrator account. It is reachable from the operator CLI only.
func (s *Service) CreateAdmin(ctx context.Context, email, name, password string) (PublicAccount, error) {
	acc := &Account{
		Email: NormalizeEmail(email),
		Name:  strings.TrimSpace(name),
		Type:  AccountAdmin,
		Role:  RoleAdmin,
	}
	if err := s.create(ctx, acc, password); err != nil {
		return PublicAccount{}, err
	}
	return acc.Public(), nil
}

func (s *Service) create(ctx context.Context, acc *Account, password string) error {
	if acc.Email == "" || !strings.Contains(acc.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidArgument)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, MinPasswordLength)
	}
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	acc.ID = ids.New()
	acc.PasswordHash = hash
	acc.CreatedAt = now
	acc.UpdatedAt = now
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Issue exchanges an email and password for a signed credential.
func (s *Service) Issue(ctx context.Context, email, password string) (cred Credential, err error) {
	defer func() { obs.AuthEvent("login", err) }()
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Credential{}, fmt.Errorf("%w: email and password are required", ErrInvalidArgument)
	}
	acc, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("find account: %w", err)
	}
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		return Credential{}, ErrInvalidCredential
	}
	token, expiresAt, err := s.tokens.Sign(Identity{AccountID: acc.ID, Role: acc.Role})
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: token, ExpiresAt: expiresAt, Account: acc.Public()}, nil
}

// Verify turns a presented bearer token into the caller identity.
func (s *Service) Verify(token string) (Identity, error) {
	return s.tokens.Verify(token)
}

// CurrentAccount loads the public projection of the caller.
func (s *Service) CurrentAccount(ctx context.Context, caller Identity) (PublicAccount, error) {
	if caller.IsZero() {
		return PublicAccount{}, ErrUnauthenticated
	}
	acc, err := s.accounts.Find(ctx, caller.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PublicAccount{}, ErrNotFound
		}
		return PublicAccount{}, fmt.Errorf("find account: %w", err)
	}
	return acc.Public(), nil
}

// ListAccounts returns every account. Administrators only.
func (s *Service) ListAccounts(ctx context.Context, caller Identity) ([]PublicAccount, error) {
	if err := RequireRole(caller, RoleAdmin); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]PublicAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out, nil
}

// ChangePassword replaces the caller's password after checking the current one.
// Credentials issued earlier stay valid until they expire.
func (s *Service) ChangePassword(ctx context.Context, caller Identity, current, next string) (err error) {
	defer func() { obs.AuthEvent("change_password", err) }()
	if caller.IsZero() {
		return ErrUnauthenticated
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, MinPasswordLength)
	}
	acc, err := s.accounts.Find(ctx, caller.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}
	if err := VerifyPassword(acc.PasswordHash, current); err != nil {
		return ErrInvalidCredential
	}
	hash, err := HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, acc.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
