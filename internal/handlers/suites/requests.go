package suites

import (
	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

type CreateSuiteRequest struct {
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	CaseIDs     []uuid.UUID `json:"case_ids"`
}

// UpdateSuiteRequest is a partial update. A present case_ids replaces the
// whole membership list, an empty list clears it.
type UpdateSuiteRequest struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	CaseIDs     *[]uuid.UUID `json:"case_ids"`
}

func (r UpdateSuiteRequest) Patch() domain.SuitePatch {
	patch := domain.SuitePatch{Name: r.Name, Description: r.Description}
	if r.CaseIDs != nil {
		patch.CaseIDs = append([]uuid.UUID{}, *r.CaseIDs...)
	}
	return patch
}

type SuiteCasesRequest struct {
	CaseIDs []uuid.UUID `json:"case_ids"`
}
