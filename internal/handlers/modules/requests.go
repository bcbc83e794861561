package modules

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

type CreateModuleRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// UpdateModuleRequest is a partial update. An explicit "parent_id": null
// moves the module to the top level; an absent key leaves the parent alone.
type UpdateModuleRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	ParentID    optionalID `json:"parent_id"`
}

func (r UpdateModuleRequest) Patch() domain.ModulePatch {
	patch := domain.ModulePatch{Name: r.Name, Description: r.Description}
	if r.ParentID.Set {
		if r.ParentID.ID == nil {
			patch.DetachParent = true
		} else {
			patch.ParentID = r.ParentID.ID
		}
	}
	return patch
}

type optionalID struct {
	Set bool
	ID  *uuid.UUID
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.ID = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.ID = &id
	return nil
}
