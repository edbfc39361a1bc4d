package portal

import (
	"context"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/model"
)

// ListVisits returns visits across all of the lawyer's cases.
func (s *Service) ListVisits(ctx context.Context) ([]model.Visit, error) {
	path, err := s.path("listVisits", nil)
	if err != nil {
		return nil, err
	}

	var out []model.Visit
	if err := s.api.Get(ctx, path, &out, auth.CallOptions{Operation: "listVisits"}); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCaseVisits returns the visits scheduled for one case.
func (s *Service) ListCaseVisits(ctx context.Context, caseID string) ([]model.Visit, error) {
	path, err := s.path("listCaseVisits", map[string]string{"caseId": caseID})
	if err != nil {
		return nil, err
	}

	var out []model.Visit
	if err := s.api.Get(ctx, path, &out, auth.CallOptions{Operation: "listCaseVisits"}); err != nil {
		return nil, err
	}
	return out, nil
}
