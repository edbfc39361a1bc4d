package portal

import (
	"context"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/model"
)

// TrackCase looks up a case by phone number and case number. This is the
// public flow: no bearer token is required and a 401 must surface to the
// caller instead of triggering a refresh.
func (s *Service) TrackCase(ctx context.Context, phone, caseNumber string) (model.TrackResult, error) {
	path, err := s.path("trackCase", nil)
	if err != nil {
		return model.TrackResult{}, err
	}

	noRetry := false
	body := map[string]string{"phone": phone, "case_number": caseNumber}

	var out model.TrackResult
	err = s.api.Post(ctx, path, body, &out, auth.CallOptions{
		RetryOnUnauthorized: &noRetry,
		Operation:           "trackCase",
	})
	if err != nil {
		return model.TrackResult{}, err
	}
	return out, nil
}
