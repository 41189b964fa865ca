package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/role"
)

var (
	ErrRegistrationClosed = internal.NewForbiddenError("Self registration is not available for this account type", internal.ErrCodeInvalidType)
	ErrUnknownType        = internal.NewValidationError("Unknown account type", internal.ErrCodeInvalidType)
)

// AccountService is the slice of principal.Service that login and sign-up need.
type AccountService interface {
	Create(ctx context.Context, t principal.Type, in principal.NewAccount) (*principal.Principal, error)
	FindForLogin(ctx context.Context, t principal.Type, email string) (*principal.Principal, error)
}

type RoleLookup interface {
	GetByCode(ctx context.Context, code string) (*role.Role, error)
}

type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

type Service struct {
	accounts AccountService
	roles    RoleLookup
	codec    *TokenCodec
	hasher   Hasher
	logger   *slog.Logger
}

func NewService(accounts AccountService, roles RoleLookup, codec *TokenCodec, hasher Hasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		roles:    roles,
		codec:    codec,
		hasher:   hasher,
		logger:   logger,
	}
}

// DefaultRoleCode is the role a self-registered account of type t receives.
func DefaultRoleCode(t principal.Type) string {
	return role.NormalizeCode(t.String())
}

// Login never tells the caller which of email, password or account state was wrong.
func (s *Service) Login(ctx context.Context, t principal.Type, req LoginRequest) (*Session, error) {
	if !t.Valid() {
		return nil, ErrUnknownType
	}

	p, err := s.accounts.FindForLogin(ctx, t, req.Email)
	if err != nil {
		if errors.Is(err, internal.ErrPrincipalInactive) {
			s.logger.Warn("login rejected: role unavailable", "type", t)
			return nil, internal.ErrInvalidCredentials
		}
		return nil, err
	}
	if p == nil || !s.hasher.Compare(p.PasswordHash, req.Password) {
		s.logger.Warn("login rejected: bad credentials", "type", t)
		return nil, internal.ErrInvalidCredentials
	}
	if !p.Usable() {
		s.logger.Warn("login rejected: account inactive", "type", t, "principal_id", p.ID)
		return nil, internal.ErrInvalidCredentials
	}

	p.PasswordHash = ""
	session, err := s.issue(p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login succeeded", "type", t, "principal_id", p.ID)
	return session, nil
}

// Register creates a self-service account with the default role for its type
// and signs the caller in.
func (s *Service) Register(ctx context.Context, t principal.Type, req RegisterRequest) (*Session, error) {
	if !t.Valid() {
		return nil, ErrUnknownType
	}
	if !t.SelfRegistering() {
		return nil, ErrRegistrationClosed
	}

	r, err := s.roles.GetByCode(ctx, DefaultRoleCode(t))
	if err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			return nil, internal.NewInternalError("default role is not provisioned", err)
		}
		return nil, err
	}

	created, err := s.accounts.Create(ctx, t, principal.NewAccount{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		RoleID:   r.ID,
	})
	if err != nil {
		return nil, err
	}
	created.Role = r

	return s.issue(created)
}

func (s *Service) issue(p *principal.Principal) (*Session, error) {
	token, expiresAt, err := s.codec.Issue(p)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}
	return &Session{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		Principal: p,
	}, nil
}
