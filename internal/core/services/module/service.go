package module

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

// IModuleService manages modules, the containers test cases belong to
type IModuleService interface {
	ListModules(ctx context.Context) ([]*domain.Module, error)

	GetModule(ctx context.Context, moduleID uuid.UUID) (*domain.Module, error)

	// CreateModule creates a module, optionally under an existing parent
	CreateModule(ctx context.Context, name string, description *string, parentID *uuid.UUID) (*domain.Module, error)

	// UpdateModule applies a partial update
	UpdateModule(ctx context.Context, moduleID uuid.UUID, patch domain.ModulePatch) (*domain.Module, error)

	// DeleteModule removes an empty module. With cascade the module's test
	// cases are deleted with it.
	DeleteModule(ctx context.Context, moduleID uuid.UUID, cascade bool) error
}
