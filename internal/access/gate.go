package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/frahmantamala/marketplace/internal"
	"github.com/frahmantamala/marketplace/internal/auth"
	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/role"
	"github.com/frahmantamala/marketplace/internal/transport"
	"github.com/frahmantamala/marketplace/pkg/logger"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type PrincipalResolver interface {
	Resolve(ctx context.Context, t principal.Type, id int64) (*principal.Principal, error)
}

type Checker interface {
	Check(ctx context.Context, r *role.Role, moduleName, action, subModuleName string) (Decision, error)
}

type GateOptions struct {
	// ExposeDenialReason adds the evaluator's reason to 403 details.
	ExposeDenialReason bool
	Metrics            *Metrics
	Logger             *slog.Logger
}

// Gate builds the authentication and authorization middleware. Every
// rejection is rendered by transport.RenderError.
type Gate struct {
	tokens       TokenVerifier
	resolver     PrincipalResolver
	checker      Checker
	exposeReason bool
	metrics      *Metrics
	tracer       trace.Tracer
	logger       *slog.Logger
}

func NewGate(tokens TokenVerifier, resolver PrincipalResolver, checker Checker, opts GateOptions) *Gate {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gate{
		tokens:       tokens,
		resolver:     resolver,
		checker:      checker,
		exposeReason: opts.ExposeDenialReason,
		metrics:      opts.Metrics,
		tracer:       otel.Tracer(tracerName),
		logger:       opts.Logger,
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, gate string, err error) {
	code := string(internal.ErrCodeInternal)
	if appErr, ok := internal.AsAppError(err); ok {
		code = string(appErr.Code)
	}
	g.metrics.rejection(gate, code)
	transport.RenderError(w, r, err)
}

// Authenticate admits requests whose bearer token verifies and names a live
// principal of one of types. No types means any type. The token is verified
// before any storage lookup.
func (g *Gate) Authenticate(types ...principal.Type) func(http.Handler) http.Handler {
	allowed := make(map[principal.Type]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := g.tracer.Start(r.Context(), "access.Authenticate")
			defer span.End()

			token := transport.ExtractTokenFromHeader(r)
			if token == "" {
				g.reject(w, r, "authenticate", internal.ErrMissingToken)
				return
			}

			claims, err := g.tokens.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					g.reject(w, r, "authenticate", internal.ErrTokenExpired)
					return
				}
				g.reject(w, r, "authenticate", internal.ErrInvalidToken)
				return
			}

			if len(allowed) > 0 && !allowed[claims.Type] {
				g.reject(w, r, "authenticate", internal.ErrInvalidTokenType)
				return
			}

			p, err := g.resolver.Resolve(ctx, claims.Type, claims.PrincipalID)
			if err != nil {
				if principal.IsIdentityError(err) {
					logger.From(ctx).Warn("token names no usable principal",
						"type", claims.Type,
						"principal_id", claims.PrincipalID,
						"error", err)
					g.reject(w, r, "authenticate", internal.ErrPrincipalInactive)
					return
				}
				g.reject(w, r, "authenticate", internal.NewInternalError("failed to resolve principal", err))
				return
			}

			span.SetAttributes(
				attribute.String("principal.type", p.Type.String()),
				attribute.Int64("principal.id", p.ID),
			)
			ctx = principal.WithPrincipal(ctx, p)
			ctx = logger.WithPrincipal(ctx, p.Type.String(), p.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Gate) AuthenticateAny() func(http.Handler) http.Handler {
	return g.Authenticate()
}

func (g *Gate) AuthenticateUser() func(http.Handler) http.Handler {
	return g.Authenticate(principal.TypeUser)
}

func (g *Gate) AuthenticateCustomer() func(http.Handler) http.Handler {
	return g.Authenticate(principal.TypeCustomer)
}

func (g *Gate) AuthenticateFreelancer() func(http.Handler) http.Handler {
	return g.Authenticate(principal.TypeFreelancer)
}

func (g *Gate) AuthenticateBusiness() func(http.Handler) http.Handler {
	return g.Authenticate(principal.TypeBusiness)
}

func (g *Gate) AuthenticateVendorB2B() func(http.Handler) http.Handler {
	return g.Authenticate(principal.TypeVendorB2B)
}

func (g *Gate) AuthenticateVendorB2C() func(http.Handler) http.Handler {
	return g.Authenticate(principal.TypeVendorB2C)
}

type AuthorizeOptions struct {
	MinLevel int
	Roles    []string
}

// Passes reports whether r clears the coarse role check. Either configured
// condition is sufficient.
func (o AuthorizeOptions) Passes(r *role.Role) bool {
	if r == nil {
		return false
	}
	if r.IsSuperAdmin {
		return true
	}
	if o.MinLevel == 0 && len(o.Roles) == 0 {
		return true
	}
	if o.MinLevel > 0 && r.MeetsLevel(o.MinLevel) {
		return true
	}
	return len(o.Roles) > 0 && r.HasCode(o.Roles...)
}

// Authorize must run after an Authenticate gate.
func (g *Gate) Authorize(opts AuthorizeOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principal.FromContext(r.Context())
			if !ok {
				g.reject(w, r, "authorize", internal.ErrNotAuthenticated)
				return
			}
			if p.Role == nil {
				g.reject(w, r, "authorize", internal.ErrInsufficientRole)
				return
			}
			if !opts.Passes(p.Role) {
				logger.From(r.Context()).Warn("role check failed",
					"role", p.Role.Code,
					"level", p.Role.Level,
					"min_level", opts.MinLevel,
					"roles", opts.Roles)
				g.reject(w, r, "authorize", internal.ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckPermission must run after an Authenticate gate. subModule is optional.
func (g *Gate) CheckPermission(moduleName, action string, subModule ...string) func(http.Handler) http.Handler {
	subName := ""
	if len(subModule) > 0 {
		subName = subModule[0]
	}
	target := moduleName
	if subName != "" {
		target = moduleName + "/" + subName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principal.FromContext(r.Context())
			if !ok || p.Role == nil {
				g.reject(w, r, "permission", internal.ErrNotAuthenticated)
				return
			}

			d, err := g.checker.Check(r.Context(), p.Role, moduleName, action, subName)
			if err != nil {
				g.reject(w, r, "permission", internal.NewInternalError("failed to check permission", err))
				return
			}
			if !d.Allowed {
				logger.From(r.Context()).Warn("permission denied",
					"role", p.Role.Code,
					"module", target,
					"action", action,
					"reason", d.Reason)
				g.reject(w, r, "permission", g.denial(target, action, d))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) denial(target, action string, d Decision) *internal.AppError {
	err := internal.NewForbiddenError(
		fmt.Sprintf("Access denied: %s on %s", action, target),
		internal.ErrCodeAccessDenied,
	)
	if g.exposeReason {
		err = err.WithDetails(map[string]string{"reason": string(d.Reason)})
	}
	return err
}
