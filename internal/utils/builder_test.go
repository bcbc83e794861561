package querybuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectWithSchemaAndPaging(t *testing.T) {
	query, args := NewQueryBuilder("testhub").
		Select("id", "name").
		From("test_modules").
		Where("parent_id = ?", 7).
		OrGroup(func(qb QueryBuilder) {
			qb.Where("name = ?", "a").And("id <> ?", 3)
		}).
		OrderBy("created_at", true).
		OrderBy("id", false).
		Limit(10).
		Offset(20).
		Build()

	assert.Equal(t, "SELECT id, name FROM testhub.test_modules WHERE parent_id = ? OR (name = ? AND id <> ?) "+
		"ORDER BY created_at ASC, id DESC LIMIT 10 OFFSET 20", query)
	assert.Equal(t, []interface{}{7, "a", 3}, args)
}

func TestSelectWithoutSchema(t *testing.T) {
	query, _ := NewQueryBuilder("").Select("id").From("test_suites").Offset(5).ForUpdate().Build()
	assert.Equal(t, "SELECT id FROM test_suites LIMIT 9223372036854775807 OFFSET 5 FOR UPDATE", query)
}

func TestInsertRows(t *testing.T) {
	query, args := NewQueryBuilder("").
		Insert("suite_id", "test_case_id", "position").
		Into("test_suite_cases").
		Values("s", "a", 0).
		Values("s", "b", 1).
		Build()

	assert.Equal(t, "INSERT INTO test_suite_cases (suite_id, test_case_id, position) VALUES (?, ?, ?), (?, ?, ?)", query)
	assert.Equal(t, []interface{}{"s", "a", 0, "s", "b", 1}, args)

	query, _ = NewQueryBuilder("").Insert("a", "b").Into("t").Values(1).Build()
	assert.Empty(t, query)
}

func TestUpdateSortsColumns(t *testing.T) {
	query, args := NewQueryBuilder("").
		Update("test_cases", UpdateData{"title": "x", "method": "GET"}).
		Where("id = ?", 1).
		Build()

	assert.Equal(t, "UPDATE test_cases SET method = ?, title = ? WHERE id = ?", query)
	assert.Equal(t, []interface{}{"GET", "x", 1}, args)
}

func TestDelete(t *testing.T) {
	query, args := NewQueryBuilder("public").Delete("test_reports").Where("id = ?", 9).Build()
	assert.Equal(t, "DELETE FROM public.test_reports WHERE id = ?", query)
	assert.Equal(t, []interface{}{9}, args)

	query, _ = NewQueryBuilder("").Delete("test_reports").Build()
	assert.Empty(t, query)
}

func TestSelectWithJoin(t *testing.T) {
	query, args := NewQueryBuilder("testhub").
		Select("m.suite_id AS suite_id", "m.position AS position").
		FromAs("test_suite_cases", "m").
		Join(JoinTypeInner, "test_cases", "c", "c.id = m.test_case_id").
		Join(JoinTypeLeft, "test_modules", "mo", "mo.id = c.module_id").
		Where("m.suite_id = ?", "s").
		OrderBy("m.position", true).
		Build()

	assert.Equal(t, "SELECT m.suite_id AS suite_id, m.position AS position FROM testhub.test_suite_cases m "+
		"INNER JOIN testhub.test_cases c ON c.id = m.test_case_id "+
		"LEFT JOIN testhub.test_modules mo ON mo.id = c.module_id "+
		"WHERE m.suite_id = ? ORDER BY m.position ASC", query)
	assert.Equal(t, []interface{}{"s"}, args)
}

func TestStatusAlternativesGroup(t *testing.T) {
	query, args := NewQueryBuilder("").
		Select("id").
		From("test_reports").
		Where("suite_id = ?", 1).
		AndGroup(func(qb QueryBuilder) {
			qb.Where("status = ?", "PENDING").Or("status = ?", "RUNNING")
		}).
		Build()

	assert.Equal(t, "SELECT id FROM test_reports WHERE suite_id = ? AND (status = ? OR status = ?)", query)
	assert.Equal(t, []interface{}{1, "PENDING", "RUNNING"}, args)
}
