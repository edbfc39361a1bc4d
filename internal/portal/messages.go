package portal

import (
	"context"
	"net/url"
	"strconv"

	"github.com/huquq-center/insaf/internal/auth"
	"github.com/huquq-center/insaf/model"
)

// ListMessages returns one page of a case's conversation.
func (s *Service) ListMessages(ctx context.Context, caseID string, page int) (model.MessagePage, error) {
	path, err := s.path("listMessages", map[string]string{"caseId": caseID})
	if err != nil {
		return model.MessagePage{}, err
	}

	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	var out model.MessagePage
	if err := s.api.Get(ctx, path, &out, auth.CallOptions{Query: query, Operation: "listMessages"}); err != nil {
		return model.MessagePage{}, err
	}
	return out, nil
}

// SendMessage posts a message on the case thread. attachments are
// document references obtained from UploadDocument.
func (s *Service) SendMessage(ctx context.Context, caseID, body string, attachments []string) (model.Message, error) {
	path, err := s.path("sendMessage", map[string]string{"caseId": caseID})
	if err != nil {
		return model.Message{}, err
	}

	payload := map[string]any{"body": body}
	if len(attachments) > 0 {
		payload["attachments"] = attachments
	}

	var out model.Message
	err = s.api.Post(ctx, path, payload, &out, auth.CallOptions{Operation: "sendMessage"})
	if err != nil {
		return model.Message{}, err
	}
	return out, nil
}
