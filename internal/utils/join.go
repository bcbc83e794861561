package querybuilder

import "fmt"

// JoinType selects how rows of a joined table combine with the base table.
type JoinType int

const (
	JoinTypeInner JoinType = iota + 1
	JoinTypeLeft
)

func (j JoinType) keyword() string {
	if j == JoinTypeLeft {
		return "LEFT JOIN"
	}
	return "INNER JOIN"
}

// join renders as "<keyword> <table> <alias> ON <on>".
type join struct {
	joinType JoinType
	table    string
	alias    string
	on       string
}

func (j join) render(qualify func(string) string) string {
	return fmt.Sprintf(" %s %s %s ON %s", j.joinType.keyword(), qualify(j.table), j.alias, j.on)
}
