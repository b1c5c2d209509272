package audit

import (
	"time"

	id "bucketlist/pkg/domain"
)

// Action names an audited lifecycle event.
type Action string

const (
	EventUserRegistered    Action = "user_registered"
	EventUserUpdated       Action = "user_updated"
	EventUserDeleted       Action = "user_deleted"
	EventLoginSucceeded    Action = "login_succeeded"
	EventLoginFailed       Action = "login_failed"
	EventTokenRevoked      Action = "token_revoked"
	EventBucketlistCreated Action = "bucketlist_created"
	EventBucketlistUpdated Action = "bucketlist_updated"
	EventBucketlistDeleted Action = "bucketlist_deleted"
	EventItemCreated       Action = "item_created"
	EventItemDeleted       Action = "item_deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    Action            `json:"action"`
	UserID    id.UserID         `json:"user_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}
