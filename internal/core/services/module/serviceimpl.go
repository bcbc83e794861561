package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

var _ IModuleService = (*ModuleService)(nil)

// ModuleService implements IModuleService
type ModuleService struct {
	store  secondary.Store
	locker secondary.Locker
	logger primary.Logger
}

// NewModuleService creates a new module service
func NewModuleService(store secondary.Store, locker secondary.Locker, logger primary.Logger) *ModuleService {
	return &ModuleService{
		store:  store,
		locker: locker,
		logger: logger,
	}
}

func (s *ModuleService) ListModules(ctx context.Context) ([]*domain.Module, error) {
	var modules []*domain.Module
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		modules, err = tx.ListModules(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to list modules", "error", err)
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

func (s *ModuleService) GetModule(ctx context.Context, moduleID uuid.UUID) (*domain.Module, error) {
	var module *domain.Module
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		var err error
		module, err = tx.GetModule(ctx, moduleID)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to get module", "moduleId", moduleID, "error", err)
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	if module == nil {
		return nil, fmt.Errorf("module %s: %w", moduleID, errs.NotFound)
	}
	return module, nil
}

func (s *ModuleService) CreateModule(ctx context.Context, name string, description *string, parentID *uuid.UUID) (*domain.Module, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("module name is required: %w", errs.InvalidArgument)
	}

	module := &domain.Module{
		Name:        name,
		Description: description,
		ParentID:    parentID,
	}
	err := s.store.InTx(ctx, func(tx secondary.Tx) error {
		if parentID != nil {
			parent, err := tx.GetModule(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("parent module %s: %w", *parentID, errs.NotFound)
			}
		}
		return tx.InsertModule(ctx, module)
	})
	if err != nil {
		s.logger.Error("Failed to create module", "name", name, "error", err)
		return nil, fmt.Errorf("failed to create module: %w", err)
	}

	s.logger.Info("Module created", "moduleId", module.ID, "name", module.Name)
	return module, nil
}

func (s *ModuleService) UpdateModule(ctx context.Context, moduleID uuid.UUID, patch domain.ModulePatch) (*domain.Module, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("module name can not be empty: %w", errs.InvalidArgument)
	}

	var module *domain.Module
	err := s.store.InTx(ctx, func(tx secondary.Tx) error {
		var err error
		module, err = tx.GetModule(ctx, moduleID)
		if err != nil {
			return err
		}
		if module == nil {
			return fmt.Errorf("module %s: %w", moduleID, errs.NotFound)
		}

		patch.Apply(module)
		if module.ParentID != nil {
			if err := checkAncestry(ctx, tx, moduleID, *module.ParentID); err != nil {
				return err
			}
		}
		return tx.UpdateModule(ctx, module)
	})
	if err != nil {
		s.logger.Error("Failed to update module", "moduleId", moduleID, "error", err)
		return nil, fmt.Errorf("failed to update module: %w", err)
	}
	return module, nil
}

// checkAncestry walks up from parentID and rejects the move when moduleID is
// found on the way, which would turn the tree into a cycle.
func checkAncestry(ctx context.Context, tx secondary.Tx, moduleID, parentID uuid.UUID) error {
	seen := make(map[uuid.UUID]bool)
	current := parentID
	for {
		if current == moduleID {
			return fmt.Errorf("module %s can not be its own ancestor: %w", moduleID, errs.InvalidArgument)
		}
		if seen[current] {
			return nil
		}
		seen[current] = true

		parent, err := tx.GetModule(ctx, current)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("parent module %s: %w", current, errs.NotFound)
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
}

func (s *ModuleService) DeleteModule(ctx context.Context, moduleID uuid.UUID, cascade bool) error {
	unlock, err := s.locker.Lock(ctx, secondary.ModuleKey(moduleID))
	if err != nil {
		return fmt.Errorf("failed to lock module: %w", err)
	}
	defer unlock()

	removed := 0
	err = s.store.InTx(ctx, func(tx secondary.Tx) error {
		if err := tx.LockModule(ctx, moduleID); err != nil {
			return err
		}

		children, err := tx.ListChildModules(ctx, moduleID)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return fmt.Errorf("module %s has %d child modules: %w", moduleID, len(children), errs.Conflict)
		}

		cases, err := tx.ListTestCases(ctx, moduleID)
		if err != nil {
			return err
		}
		if len(cases) > 0 && !cascade {
			return fmt.Errorf("module %s owns %d test cases: %w", moduleID, len(cases), errs.Conflict)
		}
		for _, c := range cases {
			if _, err := tx.RemoveCaseFromSuites(ctx, c.ID); err != nil {
				return err
			}
			if err := tx.DeleteTestCase(ctx, c.ID); err != nil {
				return err
			}
		}
		removed = len(cases)

		return tx.DeleteModule(ctx, moduleID)
	})
	if err != nil {
		s.logger.Error("Failed to delete module", "moduleId", moduleID, "cascade", cascade, "error", err)
		return fmt.Errorf("failed to delete module: %w", err)
	}

	s.logger.Info("Module deleted", "moduleId", moduleID, "removedCases", removed)
	return nil
}
