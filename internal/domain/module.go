package domain

import (
	"time"

	"github.com/google/uuid"
)

// Module groups test cases. A module may hang under a parent module.
type Module struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	ParentID    *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Clone returns a copy that shares no pointers with m.
func (m *Module) Clone() *Module {
	if m == nil {
		return nil
	}
	cp := *m
	if m.Description != nil {
		d := *m.Description
		cp.Description = &d
	}
	if m.ParentID != nil {
		p := *m.ParentID
		cp.ParentID = &p
	}
	return &cp
}

type ModuleTable struct {
	ID          string
	Name        string
	Description string
	ParentID    string
	CreatedAt   string
	UpdatedAt   string
}

func GetModuleTable() ModuleTable {
	return ModuleTable{
		ID:          "id",
		Name:        "name",
		Description: "description",
		ParentID:    "parent_id",
		CreatedAt:   "created_at",
		UpdatedAt:   "updated_at",
	}
}

func (ModuleTable) TableName() string {
	return "test_modules"
}
