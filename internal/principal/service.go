package principal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/core/datamodel"
	principalDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/principal"
)

var (
	ErrAccountNotFound = internal.NewNotFoundError("Account not found", internal.ErrCodePrincipalNotFound)
	ErrEmailTaken      = internal.NewConflictError("Email is already registered", internal.ErrCodeEmailTaken)
	ErrInvalidRole     = internal.NewValidationFieldError("role_id", "role does not exist", internal.ErrCodeRoleNotFound)
	ErrInvalidType     = internal.NewValidationError("Unknown account type", internal.ErrCodeInvalidType)
	ErrWrongPassword   = internal.NewUnauthorizedError("Current password is incorrect", internal.ErrCodeInvalidCredentials)
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

type Service struct {
	accounts RepositoryAPI
	resolver *Resolver
	roles    RoleLookup
	hasher   PasswordHasher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(accounts RepositoryAPI, roles RoleLookup, hasher PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		resolver: NewResolver(accounts, roles),
		roles:    roles,
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
	}
}

// Create stores a new active account of type t.
func (s *Service) Create(ctx context.Context, t Type, in NewAccount) (*Principal, error) {
	table, err := t.Table()
	if err != nil {
		return nil, ErrInvalidType
	}

	rr, err := s.roles.GetByID(ctx, in.RoleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role", err)
	}
	if rr == nil || rr.IsDeleted {
		return nil, ErrInvalidRole
	}

	email := NormalizeEmail(in.Email)
	existing, err := s.accounts.FindByEmail(ctx, table, email, false)
	if err != nil {
		return nil, internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	p := &Principal{
		Type:         t,
		Email:        email,
		Name:         in.Name,
		Phone:        in.Phone,
		PasswordHash: hash,
		RoleID:       in.RoleID,
		IsActive:     true,
	}
	row := ToDataModel(p)
	if err := s.accounts.Create(ctx, table, row); err != nil {
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, internal.NewInternalError("failed to create account", err)
	}

	created := FromDataModel(t, row)
	created.PasswordHash = ""
	s.logger.Info("account created", "type", t, "principal_id", created.ID, "role_id", created.RoleID)
	return created, nil
}

// FindForLogin returns the account with its credential hash and live role,
// or nil when no live account has that email.
func (s *Service) FindForLogin(ctx context.Context, t Type, email string) (*Principal, error) {
	table, err := t.Table()
	if err != nil {
		return nil, ErrInvalidType
	}

	row, err := s.accounts.FindByEmail(ctx, table, NormalizeEmail(email), true)
	if err != nil {
		return nil, internal.NewInternalError("failed to load account", err)
	}
	if row == nil {
		return nil, nil
	}

	p := FromDataModel(t, row)
	if err := s.resolver.attachRole(ctx, p); err != nil {
		if errors.Is(err, ErrRoleUnavailable) {
			return nil, internal.ErrPrincipalInactive
		}
		return nil, internal.NewInternalError("failed to load role", err)
	}
	return p, nil
}

func (s *Service) SetActive(ctx context.Context, t Type, id int64, active bool) (*Principal, error) {
	table, row, err := s.load(ctx, t, id)
	if err != nil {
		return nil, err
	}

	row.IsActive = active
	if err := s.accounts.Update(ctx, table, row); err != nil {
		return nil, internal.NewInternalError("failed to update account", err)
	}
	s.logger.Info("account status changed", "type", t, "principal_id", id, "is_active", active)

	p := FromDataModel(t, row)
	p.PasswordHash = ""
	return p, nil
}

func (s *Service) SoftDelete(ctx context.Context, t Type, id int64) error {
	table, row, err := s.load(ctx, t, id)
	if err != nil {
		return err
	}

	at := s.now()
	row.IsDeleted = true
	row.DeletedAt = &at
	if err := s.accounts.Update(ctx, table, row); err != nil {
		return internal.NewInternalError("failed to delete account", err)
	}
	s.logger.Info("account soft deleted", "type", t, "principal_id", id)
	return nil
}

func (s *Service) Get(ctx context.Context, t Type, id int64) (*Principal, error) {
	_, row, err := s.load(ctx, t, id)
	if err != nil {
		return nil, err
	}
	p := FromDataModel(t, row)
	p.PasswordHash = ""
	return p, nil
}

func (s *Service) List(ctx context.Context, t Type, q ListQuery) (*ListResult, error) {
	table, err := t.Table()
	if err != nil {
		return nil, ErrInvalidType
	}

	page := q.Page.Normalize()
	rows, total, err := s.accounts.List(ctx, table, ListFilter{Page: page, IsActive: q.IsActive, Search: q.Search})
	if err != nil {
		return nil, internal.NewInternalError("failed to list accounts", err)
	}

	accounts := make([]*Principal, 0, len(rows))
	for _, row := range rows {
		p := FromDataModel(t, row)
		p.PasswordHash = ""
		accounts = append(accounts, p)
	}
	return &ListResult{Accounts: accounts, Meta: internal.NewPageMeta(page, total)}, nil
}

// UpdateProfile edits the contact fields of a live account. An email change
// is checked against the other live accounts of the same type.
func (s *Service) UpdateProfile(ctx context.Context, t Type, id int64, req UpdateProfileRequest) (*Principal, error) {
	table, row, err := s.load(ctx, t, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if email != row.Email {
			existing, err := s.accounts.FindByEmail(ctx, table, email, false)
			if err != nil {
				return nil, internal.NewInternalError("failed to check email", err)
			}
			if existing != nil && existing.ID != id {
				return nil, ErrEmailTaken
			}
			row.Email = email
		}
	}
	if req.Name != nil {
		row.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		row.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := s.accounts.Update(ctx, table, row); err != nil {
		if errors.Is(err, datamodel.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, internal.NewInternalError("failed to update account", err)
	}
	s.logger.Info("account profile updated", "type", t, "principal_id", id)

	p := FromDataModel(t, row)
	p.PasswordHash = ""
	return p, nil
}

// ChangePassword replaces the credential after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, t Type, id int64, current, next string) error {
	table, _, err := s.load(ctx, t, id)
	if err != nil {
		return err
	}

	hash, err := s.accounts.FindCredential(ctx, table, id)
	if err != nil {
		return internal.NewInternalError("failed to load credential", err)
	}
	if hash == "" || !s.hasher.Compare(hash, current) {
		s.logger.Warn("password change refused", "type", t, "principal_id", id)
		return ErrWrongPassword
	}

	newHash, err := s.hasher.Hash(next)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	if err := s.accounts.UpdateCredential(ctx, table, id, newHash); err != nil {
		return internal.NewInternalError("failed to update credential", err)
	}
	s.logger.Info("account password changed", "type", t, "principal_id", id)
	return nil
}

func (s *Service) load(ctx context.Context, t Type, id int64) (string, *principalDatamodel.Account, error) {
	table, err := t.Table()
	if err != nil {
		return "", nil, ErrInvalidType
	}
	row, err := s.accounts.FindByID(ctx, table, id)
	if err != nil {
		return "", nil, internal.NewInternalError("failed to load account", err)
	}
	if row == nil || row.IsDeleted {
		return "", nil, ErrAccountNotFound
	}
	return table, row, nil
}
