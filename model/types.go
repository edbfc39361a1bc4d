package model

import "time"

// Profile is the lawyer's profile snapshot returned by the portal on login
// and by the profile endpoints.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	BarNumber string `json:"bar_number,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// LoginResult is the portal's response to a successful login.
type LoginResult struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	Profile      Profile `json:"user"`
}

// RefreshResult is the portal's response to a successful token refresh.
// RefreshToken is empty when the server did not rotate it.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// CaseSummary is one row of the lawyer's case list.
type CaseSummary struct {
	ID           string    `json:"id"`
	CaseNumber   string    `json:"case_number"`
	DetaineeName string    `json:"detainee_name"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Case is the full case detail.
type Case struct {
	CaseSummary
	Detainee   map[string]any `json:"detainee"`
	Detention  map[string]any `json:"detention"`
	Client     map[string]any `json:"client"`
	Documents  []Document     `json:"documents"`
	Delegation map[string]any `json:"delegation"`
}

// Document is an uploaded document reference.
type Document struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	FileName string `json:"file_name"`
	URL      string `json:"url,omitempty"`
}

// SubmissionResult is the portal's response to a case submission.
type SubmissionResult struct {
	CaseID     string `json:"case_id"`
	CaseNumber string `json:"case_number"`
}

// TrackResult is the public case-tracking response for a phone plus
// case-number lookup.
type TrackResult struct {
	CaseNumber string       `json:"case_number"`
	Status     string       `json:"status"`
	UpdatedAt  time.Time    `json:"updated_at"`
	History    []TrackEvent `json:"history,omitempty"`
}

// TrackEvent is one entry of a tracked case's status history.
type TrackEvent struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is one message of a case conversation.
type Message struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	Body        string    `json:"body"`
	Attachments []string  `json:"attachments,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// MessagePage is a paginated slice of a case conversation.
type MessagePage struct {
	Items      []Message `json:"items"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// Notification is one lawyer notification.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationPage is a paginated slice of notifications.
type NotificationPage struct {
	Items      []Notification `json:"items"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Unread     int            `json:"unread"`
}

// Visit is a scheduled or past detainee visit.
type Visit struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	Facility    string    `json:"facility"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}
