package portal

import (
	"context"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/model"
)

// GetProfile fetches the authenticated lawyer's profile.
func (s *Service) GetProfile(ctx context.Context) (model.Profile, error) {
	path, err := s.path("getProfile", nil)
	if err != nil {
		return model.Profile{}, err
	}

	var out model.Profile
	if err := s.api.Get(ctx, path, &out, auth.CallOptions{Operation: "getProfile"}); err != nil {
		return model.Profile{}, err
	}
	return out, nil
}

// ProfileUpdate carries the editable profile fields. Empty fields are
// omitted from the request and left unchanged by the portal.
type ProfileUpdate struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	BarNumber string `json:"bar_number,omitempty"`
}

// UpdateProfile edits the lawyer's profile.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (model.Profile, error) {
	path, err := s.path("updateProfile", nil)
	if err != nil {
		return model.Profile{}, err
	}

	var out model.Profile
	if err := s.api.Put(ctx, path, update, &out, auth.CallOptions{Operation: "updateProfile"}); err != nil {
		return model.Profile{}, err
	}
	return out, nil
}

// ChangePassword changes the account password. The portal invalidates
// other sessions; the current one stays valid.
func (s *Service) ChangePassword(ctx context.Context, current, newPassword string) error {
	path, err := s.path("changePassword", nil)
	if err != nil {
		return err
	}
	body := map[string]string{
		"current_password": current,
		"new_password":     newPassword,
	}
	return s.api.Post(ctx, path, body, nil, auth.CallOptions{Operation: "changePassword"})
}
