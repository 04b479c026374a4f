package dto

// CreateRequest is the inbound payload for creating a notification.
type CreateRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Channel string `json:"channel" validate:"required,oneof=email chat bot"`
	Subject string `json:"subject"` // optional, email only
	Message string `json:"message" validate:"required"`
}
