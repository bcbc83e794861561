package testcase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
)

var errBatchAborted = errors.New("batch aborted")

// batchTarget is one resolvable id of a batch request.
type batchTarget struct {
	index    int
	id       uuid.UUID
	moduleID uuid.UUID
}

func (s *TestCaseService) BatchDeleteTestCases(ctx context.Context, caseIDs []uuid.UUID) ([]domain.BatchItemResult, error) {
	results := make([]domain.BatchItemResult, len(caseIDs))
	for i, id := range caseIDs {
		results[i] = domain.BatchItemResult{ID: id}
	}
	if len(caseIDs) == 0 {
		return results, nil
	}

	groups, err := s.resolveBatch(ctx, caseIDs, results)
	if err != nil {
		return nil, err
	}

	if s.strictBatch {
		s.deleteStrict(ctx, groups, results)
	} else {
		s.deleteBestEffort(ctx, groups, results)
	}

	deleted := 0
	for _, r := range results {
		if r.Status == domain.BatchItemDeleted {
			deleted++
		}
	}
	s.logger.Info("Batch delete finished", "requested", len(caseIDs), "deleted", deleted, "strict", s.strictBatch)
	return results, nil
}

// resolveBatch finds the module of every requested id. Unknown ids and
// repeats are marked NOT_FOUND; the rest are grouped by module.
func (s *TestCaseService) resolveBatch(ctx context.Context, caseIDs []uuid.UUID, results []domain.BatchItemResult) (map[uuid.UUID][]batchTarget, error) {
	groups := make(map[uuid.UUID][]batchTarget)
	seen := make(map[uuid.UUID]bool, len(caseIDs))
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		for i, id := range caseIDs {
			if seen[id] {
				results[i].Status = domain.BatchItemNotFound
				results[i].Message = "duplicate id in request"
				continue
			}
			seen[id] = true

			c, err := tx.GetTestCase(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				results[i].Status = domain.BatchItemNotFound
				continue
			}
			groups[c.ModuleID] = append(groups[c.ModuleID], batchTarget{index: i, id: id, moduleID: c.ModuleID})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to resolve batch", "error", err)
		return nil, fmt.Errorf("failed to resolve batch: %w", err)
	}
	return groups, nil
}

// deleteBestEffort runs one transaction per module. A failing module marks
// its own ids CONFLICT and leaves the other modules alone. Cases that moved to
// another module after they were resolved are resolved and tried once more.
func (s *TestCaseService) deleteBestEffort(ctx context.Context, groups map[uuid.UUID][]batchTarget, results []domain.BatchItemResult) {
	moved := s.deleteGroups(ctx, groups, results)
	if len(moved) == 0 {
		return
	}

	regrouped, err := s.regroup(ctx, moved, results)
	if err != nil {
		s.logger.Error("Failed to resolve moved test cases", "error", err)
		return
	}
	s.deleteGroups(ctx, regrouped, results)
}

// deleteGroups deletes every group in module order and returns the targets
// found in another module.
func (s *TestCaseService) deleteGroups(ctx context.Context, groups map[uuid.UUID][]batchTarget, results []domain.BatchItemResult) []batchTarget {
	var moved []batchTarget
	for _, moduleID := range sortedModules(groups) {
		targets := groups[moduleID]
		keys := append(s.referencingSuiteKeys(ctx, targetIDs(targets)...), secondary.ModuleKey(moduleID))

		var groupMoved []batchTarget
		unlock, err := secondary.LockAll(ctx, s.locker, keys...)
		if err == nil {
			err = s.store.InTx(ctx, func(tx secondary.Tx) error {
				var err error
				groupMoved, err = deleteGroup(ctx, tx, moduleID, targets, results, false)
				return err
			})
			unlock()
		}
		if err != nil {
			s.logger.Error("Failed to delete batch group", "moduleId", moduleID, "error", err)
			for _, t := range targets {
				results[t.index].Status = domain.BatchItemConflict
				results[t.index].Message = err.Error()
			}
			continue
		}
		moved = append(moved, groupMoved...)
	}
	return moved
}

// regroup looks the targets up again and groups them by their current module.
func (s *TestCaseService) regroup(ctx context.Context, targets []batchTarget, results []domain.BatchItemResult) (map[uuid.UUID][]batchTarget, error) {
	groups := make(map[uuid.UUID][]batchTarget)
	err := s.store.View(ctx, func(tx secondary.Tx) error {
		for _, t := range targets {
			c, err := tx.GetTestCase(ctx, t.id)
			if err != nil {
				return err
			}
			if c == nil {
				results[t.index].Status = domain.BatchItemNotFound
				results[t.index].Message = ""
				continue
			}
			t.moduleID = c.ModuleID
			groups[c.ModuleID] = append(groups[c.ModuleID], t)
		}
		return nil
	})
	return groups, err
}

// deleteStrict deletes everything in one transaction or nothing at all.
func (s *TestCaseService) deleteStrict(ctx context.Context, groups map[uuid.UUID][]batchTarget, results []domain.BatchItemResult) {
	if !anyMissing(results) {
		modules := sortedModules(groups)
		ids := make([]uuid.UUID, 0, len(results))
		keys := make([]string, 0, len(modules))
		for _, moduleID := range modules {
			keys = append(keys, secondary.ModuleKey(moduleID))
			ids = append(ids, targetIDs(groups[moduleID])...)
		}
		keys = append(keys, s.referencingSuiteKeys(ctx, ids...)...)

		unlock, err := secondary.LockAll(ctx, s.locker, keys...)
		if err == nil {
			err = s.store.InTx(ctx, func(tx secondary.Tx) error {
				for _, moduleID := range modules {
					if _, err := deleteGroup(ctx, tx, moduleID, groups[moduleID], results, true); err != nil {
						return err
					}
				}
				return nil
			})
			unlock()
		}
		if err == nil {
			return
		}
		if !errors.Is(err, errBatchAborted) {
			s.logger.Error("Failed to delete batch", "error", err)
		}
	}

	// Roll the outcome back to "nothing deleted".
	for i := range results {
		if results[i].Status == domain.BatchItemNotFound {
			continue
		}
		results[i].Status = domain.BatchItemConflict
		results[i].Message = "batch aborted: not every id could be deleted"
	}
}

// deleteGroup deletes the targets of one module and compacts it. In strict
// mode the first unresolvable target aborts the whole transaction; otherwise
// targets now in another module are marked CONFLICT and returned.
func deleteGroup(ctx context.Context, tx secondary.Tx, moduleID uuid.UUID, targets []batchTarget, results []domain.BatchItemResult, strict bool) ([]batchTarget, error) {
	if err := tx.LockModule(ctx, moduleID); err != nil {
		return nil, err
	}
	var moved []batchTarget
	for _, t := range targets {
		current, err := tx.GetTestCase(ctx, t.id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			results[t.index].Status = domain.BatchItemNotFound
			if strict {
				return nil, errBatchAborted
			}
			continue
		}
		if current.ModuleID != moduleID {
			results[t.index].Status = domain.BatchItemConflict
			results[t.index].Message = "test case moved to another module"
			if strict {
				return nil, errBatchAborted
			}
			moved = append(moved, t)
			continue
		}
		if err := deleteAndDetach(ctx, tx, t.id); err != nil {
			return nil, err
		}
		results[t.index].Status = domain.BatchItemDeleted
		results[t.index].Message = ""
	}
	return moved, compact(ctx, tx, moduleID)
}

func anyMissing(results []domain.BatchItemResult) bool {
	for _, r := range results {
		if r.Status == domain.BatchItemNotFound {
			return true
		}
	}
	return false
}

func targetIDs(targets []batchTarget) []uuid.UUID {
	ids := make([]uuid.UUID, len(targets))
	for i, t := range targets {
		ids[i] = t.id
	}
	return ids
}

func sortedModules(groups map[uuid.UUID][]batchTarget) []uuid.UUID {
	modules := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		modules = append(modules, id)
	}
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].String() < modules[j].String()
	})
	return modules
}

func sortedUnique(keys []string) []string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		out = append(out, k)
	}
	return out
}
