package portal

import (
	"context"
	"net/url"
	"strconv"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/model"
)

// ListNotifications returns one page of the lawyer's notifications.
func (s *Service) ListNotifications(ctx context.Context, page int) (model.NotificationPage, error) {
	path, err := s.path("listNotifications", nil)
	if err != nil {
		return model.NotificationPage{}, err
	}

	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	var out model.NotificationPage
	if err := s.api.Get(ctx, path, &out, auth.CallOptions{Query: query, Operation: "listNotifications"}); err != nil {
		return model.NotificationPage{}, err
	}
	return out, nil
}

// MarkNotificationRead marks one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID string) error {
	path, err := s.path("markNotificationRead", map[string]string{"notificationId": notificationID})
	if err != nil {
		return err
	}
	return s.api.Post(ctx, path, nil, nil, auth.CallOptions{Operation: "markNotificationRead"})
}
