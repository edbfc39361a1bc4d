package portal

import (
	"context"
	"net/url"
	"strconv"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/model"
)

// CaseFilter narrows the case list. Zero values mean no filtering.
type CaseFilter struct {
	Status string
	Page   int
}

// ListCases returns the lawyer's cases, optionally filtered.
func (s *Service) ListCases(ctx context.Context, filter CaseFilter) ([]model.CaseSummary, error) {
	path, err := s.path("listCases", nil)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}

	var out []model.CaseSummary
	if err := s.api.Get(ctx, path, &out, auth.CallOptions{Query: query, Operation: "listCases"}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCase returns the full record of one case.
func (s *Service) GetCase(ctx context.Context, caseID string) (model.Case, error) {
	path, err := s.path("getCase", map[string]string{"caseId": caseID})
	if err != nil {
		return model.Case{}, err
	}

	var out model.Case
	if err := s.api.Get(ctx, path, &out, auth.CallOptions{Operation: "getCase"}); err != nil {
		return model.Case{}, err
	}
	return out, nil
}

// UpdateCaseStatus moves a case to a new status with an optional note.
func (s *Service) UpdateCaseStatus(ctx context.Context, caseID, status, note string) (model.Case, error) {
	path, err := s.path("updateCaseStatus", map[string]string{"caseId": caseID})
	if err != nil {
		return model.Case{}, err
	}

	body := map[string]string{"status": status}
	if note != "" {
		body["note"] = note
	}

	var out model.Case
	if err := s.api.Patch(ctx, path, body, &out, auth.CallOptions{Operation: "updateCaseStatus"}); err != nil {
		return model.Case{}, err
	}
	return out, nil
}
