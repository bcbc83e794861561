package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
	querybuilder "gitlab.com/testhub.net/internal/utils"
)

var _ secondary.Tx = (*sqlTx)(nil)

var errInvalidQuery = errors.New("query builder produced an empty statement")

type sqlTx struct {
	tx       *sqlx.Tx
	store    *Store
	readOnly bool
}

func (t *sqlTx) qb() querybuilder.QueryBuilder {
	return querybuilder.NewQueryBuilder(t.store.schema)
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if t.readOnly {
		return nil, errReadOnly
	}
	if query == "" {
		return nil, errInvalidQuery
	}
	return t.tx.ExecContext(ctx, t.store.rebind(query), args...)
}

// get scans one row into dest and reports whether a row was found.
func (t *sqlTx) get(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := t.tx.GetContext(ctx, dest, t.store.rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *sqlTx) selectRows(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return t.tx.SelectContext(ctx, dest, t.store.rebind(query), args...)
}

// lockRow checks that the row exists and, where the dialect allows it, keeps
// it locked until the transaction ends.
func (t *sqlTx) lockRow(ctx context.Context, table, idCol string, id uuid.UUID, kind string) error {
	qb := t.qb().Select(idCol).From(table).Where(idCol+" = ?", id)
	if t.store.dialect.rowLocks && !t.readOnly {
		qb = qb.ForUpdate()
	}
	query, args := qb.Build()

	var got uuid.UUID
	found, err := t.get(ctx, &got, query, args...)
	if err != nil {
		return t.store.failed("lock "+kind, err)
	}
	if !found {
		return fmt.Errorf("%s %s: %w", kind, id, errs.NotFound)
	}
	return nil
}

func (t *sqlTx) exists(ctx context.Context, table, idCol string, id uuid.UUID) (bool, error) {
	query, args := t.qb().Select(idCol).From(table).Where(idCol+" = ?", id).Build()
	var got uuid.UUID
	return t.get(ctx, &got, query, args...)
}

func (t *sqlTx) count(ctx context.Context, table, col string, value interface{}) (int, error) {
	query, args := t.qb().Select("COUNT(*)").From(table).Where(col+" = ?", value).Build()
	var n int
	if _, err := t.get(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *sqlTx) LockModule(ctx context.Context, moduleID uuid.UUID) error {
	tbl := domain.GetModuleTable()
	return t.lockRow(ctx, tbl.TableName(), tbl.ID, moduleID, "module")
}

func moduleColumns() []string {
	tbl := domain.GetModuleTable()
	return []string{tbl.ID, tbl.Name, tbl.Description, tbl.ParentID, tbl.CreatedAt, tbl.UpdatedAt}
}

func (t *sqlTx) requireModule(ctx context.Context, moduleID uuid.UUID, kind string) error {
	tbl := domain.GetModuleTable()
	found, err := t.exists(ctx, tbl.TableName(), tbl.ID, moduleID)
	if err != nil {
		return t.store.failed("look up module", err)
	}
	if !found {
		return fmt.Errorf("%s %s: %w", kind, moduleID, errs.NotFound)
	}
	return nil
}

func (t *sqlTx) InsertModule(ctx context.Context, module *domain.Module) error {
	if module.ParentID != nil {
		if err := t.requireModule(ctx, *module.ParentID, "parent module"); err != nil {
			return err
		}
	}

	now := t.store.stamp()
	id := newID()
	tbl := domain.GetModuleTable()
	query, args := t.qb().
		Insert(moduleColumns()...).
		Into(tbl.TableName()).
		Values(id, module.Name, toNullString(module.Description), toNullUUID(module.ParentID), now, now).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("insert module", err)
	}

	module.ID = id
	module.CreatedAt = now
	module.UpdatedAt = now
	return nil
}

func (t *sqlTx) GetModule(ctx context.Context, moduleID uuid.UUID) (*domain.Module, error) {
	tbl := domain.GetModuleTable()
	query, args := t.qb().
		Select(moduleColumns()...).
		From(tbl.TableName()).
		Where(tbl.ID+" = ?", moduleID).
		Build()

	var row moduleRow
	found, err := t.get(ctx, &row, query, args...)
	if err != nil {
		return nil, t.store.failed("get module", err)
	}
	if !found {
		return nil, nil
	}
	return row.toDomain(), nil
}

func (t *sqlTx) listModules(ctx context.Context, qb querybuilder.QueryBuilder) ([]*domain.Module, error) {
	tbl := domain.GetModuleTable()
	query, args := qb.OrderBy(tbl.CreatedAt, true).OrderBy(tbl.ID, true).Build()

	var rows []moduleRow
	if err := t.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, t.store.failed("list modules", err)
	}
	modules := make([]*domain.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, row.toDomain())
	}
	return modules, nil
}

func (t *sqlTx) ListModules(ctx context.Context) ([]*domain.Module, error) {
	tbl := domain.GetModuleTable()
	return t.listModules(ctx, t.qb().Select(moduleColumns()...).From(tbl.TableName()))
}

func (t *sqlTx) ListChildModules(ctx context.Context, parentID uuid.UUID) ([]*domain.Module, error) {
	tbl := domain.GetModuleTable()
	return t.listModules(ctx, t.qb().
		Select(moduleColumns()...).
		From(tbl.TableName()).
		Where(tbl.ParentID+" = ?", parentID))
}

func (t *sqlTx) UpdateModule(ctx context.Context, module *domain.Module) error {
	if err := t.requireModule(ctx, module.ID, "module"); err != nil {
		return err
	}
	if module.ParentID != nil {
		if err := t.requireModule(ctx, *module.ParentID, "parent module"); err != nil {
			return err
		}
	}

	now := t.store.stamp()
	tbl := domain.GetModuleTable()
	query, args := t.qb().
		Update(tbl.TableName(), querybuilder.UpdateData{
			tbl.Name:        module.Name,
			tbl.Description: toNullString(module.Description),
			tbl.ParentID:    toNullUUID(module.ParentID),
			tbl.UpdatedAt:   now,
		}).
		Where(tbl.ID+" = ?", module.ID).
		Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("update module", err)
	}
	module.UpdatedAt = now
	return nil
}

func (t *sqlTx) DeleteModule(ctx context.Context, moduleID uuid.UUID) error {
	if err := t.requireModule(ctx, moduleID, "module"); err != nil {
		return err
	}

	caseTbl := domain.GetTestCaseTable()
	n, err := t.count(ctx, caseTbl.TableName(), caseTbl.ModuleID, moduleID)
	if err != nil {
		return t.store.failed("count module test cases", err)
	}
	if n > 0 {
		return fmt.Errorf("module %s still owns test cases: %w", moduleID, errs.Conflict)
	}

	tbl := domain.GetModuleTable()
	n, err = t.count(ctx, tbl.TableName(), tbl.ParentID, moduleID)
	if err != nil {
		return t.store.failed("count child modules", err)
	}
	if n > 0 {
		return fmt.Errorf("module %s still has child modules: %w", moduleID, errs.Conflict)
	}

	query, args := t.qb().Delete(tbl.TableName()).Where(tbl.ID+" = ?", moduleID).Build()
	if _, err := t.exec(ctx, query, args...); err != nil {
		return t.store.failed("delete module", err)
	}
	return nil
}
