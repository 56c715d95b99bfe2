// Package share implements the share-request workflow contracts and the
// client for the remote share service.
package share

// Permission is the access level granted by an accepted share.
type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// Valid reports whether p is a known permission level.
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// Status is the lifecycle state of a share request.
// Legal transitions: pending -> accepted, pending -> rejected. Nothing else.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Action is a recipient's decision on a pending request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// Valid reports whether a is a known respond action.
func (a Action) Valid() bool {
	return a == ActionAccept || a == ActionReject
}

// Request is a share request as returned by the service. Sender-side and
// recipient-side listings populate different subsets of the optional fields.
type Request struct {
	ID           string     `json:"id"`
	FromUserID   string     `json:"from_user_id"`
	FromUsername string     `json:"from_username,omitempty"`
	FromEmail    string     `json:"from_email,omitempty"`
	ToUsername   string     `json:"to_username"`
	ToEmail      string     `json:"to_email,omitempty"`
	Permission   Permission `json:"permission"`
	Status       Status     `json:"status"`
	TimeAgo      string     `json:"time_ago,omitempty"`
	CreatedAt    string     `json:"created_at"`
}

// Grant is one (grantor, permission) pair derived from an accepted incoming
// request. The set of grants drives the pantry selector.
type Grant struct {
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	Permission Permission `json:"permission"`
	SharedAt   string     `json:"shared_at"`
}

// RespondResult is the service's answer to a respond call.
type RespondResult struct {
	Message string `json:"message"`
	Status  Status `json:"status"`
}

// Wire bodies for the share endpoints.

type newRequestBody struct {
	FromUserID string     `json:"from_user_id"`
	ToUsername string     `json:"to_username"`
	Permission Permission `json:"permission"`
}

type respondBody struct {
	RequestID string `json:"request_id"`
	Action    Action `json:"action"`
}

// errorBody is the service's structured rejection: {"detail": "..."}.
type errorBody struct {
	Detail string `json:"detail"`
}
