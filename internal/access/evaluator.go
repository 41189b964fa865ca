package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	permissionDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/permission"
	"github.com/frahmantamala/marketplace/internal/module"
	"github.com/frahmantamala/marketplace/internal/permission"
	"github.com/frahmantamala/marketplace/internal/role"
)

const tracerName = "github.com/frahmantamala/marketplace/internal/access"

type Reason string

const (
	ReasonSuperAdmin        Reason = "super_admin"
	ReasonGranted           Reason = "granted"
	ReasonModuleNotFound    Reason = "module_not_found"
	ReasonSubModuleNotFound Reason = "submodule_not_found"
	ReasonNoPermissionRow   Reason = "no_permission_row"
	ReasonUnknownAction     Reason = "unknown_action"
	ReasonNotGranted        Reason = "capability_not_granted"
	ReasonNoRole            Reason = "no_role"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

func allow(r Reason) Decision { return Decision{Allowed: true, Reason: r} }
func deny(r Reason) Decision  { return Decision{Allowed: false, Reason: r} }

type ModuleLookup interface {
	GetModule(ctx context.Context, name string) (*module.Module, error)
}

// PermissionSource is satisfied by the permission repository.
type PermissionSource interface {
	FindActive(ctx context.Context, roleID, moduleID int64, subModuleID *int64) (*permissionDatamodel.Permission, error)
}

type CapabilitySource interface {
	Capabilities(ctx context.Context, r *role.Role) (*permission.CapabilitySet, error)
}

type Evaluator struct {
	modules      ModuleLookup
	permissions  PermissionSource
	capabilities CapabilitySource
	metrics      *Metrics
	tracer       trace.Tracer
	logger       *slog.Logger
}

func NewEvaluator(modules ModuleLookup, permissions PermissionSource, capabilities CapabilitySource, metrics *Metrics, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		modules:      modules,
		permissions:  permissions,
		capabilities: capabilities,
		metrics:      metrics,
		tracer:       otel.Tracer(tracerName),
		logger:       logger,
	}
}

// Check decides whether r may perform action on moduleName, or on its
// submodule subModuleName when that is not empty. A returned error is an
// infrastructure failure and carries no decision.
func (e *Evaluator) Check(ctx context.Context, r *role.Role, moduleName, action, subModuleName string) (Decision, error) {
	ctx, span := e.tracer.Start(ctx, "access.Check", trace.WithAttributes(
		attribute.String("access.module", moduleName),
		attribute.String("access.action", action),
		attribute.String("access.submodule", subModuleName),
	))
	defer span.End()

	d, err := e.check(ctx, r, moduleName, action, subModuleName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "permission check failed")
		return Decision{}, err
	}

	span.SetAttributes(
		attribute.Bool("access.allowed", d.Allowed),
		attribute.String("access.reason", string(d.Reason)),
	)
	e.metrics.decision(d)
	if !d.Allowed && r != nil {
		e.logger.Debug("permission denied",
			"role", r.Code,
			"module", moduleName,
			"submodule", subModuleName,
			"action", action,
			"reason", d.Reason)
	}
	return d, nil
}

func (e *Evaluator) check(ctx context.Context, r *role.Role, moduleName, action, subModuleName string) (Decision, error) {
	if r == nil {
		return deny(ReasonNoRole), nil
	}
	if r.IsSuperAdmin {
		return allow(ReasonSuperAdmin), nil
	}

	m, err := e.modules.GetModule(ctx, moduleName)
	if err != nil {
		if errors.Is(err, module.ErrModuleNotFound) {
			return deny(ReasonModuleNotFound), nil
		}
		return Decision{}, err
	}

	var subID *int64
	if subModuleName != "" {
		sub := m.ActiveSubModule(subModuleName)
		if sub == nil {
			return deny(ReasonSubModuleNotFound), nil
		}
		id := sub.ID
		subID = &id
	}

	row, err := e.permissions.FindActive(ctx, r.ID, m.ID, subID)
	if err != nil {
		return Decision{}, fmt.Errorf("load permission: %w", err)
	}
	if row == nil {
		return deny(ReasonNoPermissionRow), nil
	}

	a, ok := permission.ParseAction(action)
	if !ok {
		return deny(ReasonUnknownAction), nil
	}

	if !permission.FromDataModel(row).Allows(a) {
		return deny(ReasonNotGranted), nil
	}
	return allow(ReasonGranted), nil
}

// Capabilities returns the whole capability map of r in one query.
func (e *Evaluator) Capabilities(ctx context.Context, r *role.Role) (*permission.CapabilitySet, error) {
	ctx, span := e.tracer.Start(ctx, "access.Capabilities")
	defer span.End()

	set, err := e.capabilities.Capabilities(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "capability load failed")
		return nil, err
	}
	return set, nil
}
