package share

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pantrylink/pantrylink-go/internal/httpclient"
	"github.com/pantrylink/pantrylink-go/internal/identity"
	"github.com/pantrylink/pantrylink-go/internal/logutil"
	"github.com/pantrylink/pantrylink-go/internal/metrics"
)

// Service is a stateless wrapper around the remote share endpoints. It holds
// no cache; every read re-fetches. The acting identity is resolved per call
// through the injected Resolver, and no operation touches the network
// without one.
type Service struct {
	baseURL  string
	http     *httpclient.Client
	identity identity.Resolver
	logger   *slog.Logger
}

// NewService creates a share service client. baseURL must not have a
// trailing slash (it is trimmed if present).
func NewService(baseURL string, hc *httpclient.Client, res identity.Resolver, logger *slog.Logger) *Service {
	return &Service{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     hc,
		identity: res,
		logger:   logutil.NoopIfNil(logger),
	}
}

// SendRequest creates a share request addressed to toUsername. The username
// is validated client-side before any network call; service-side rejections
// (unknown user, self-share, duplicate pending) surface as *RemoteError with
// the service's detail text verbatim.
func (s *Service) SendRequest(ctx context.Context, toUsername string, permission Permission) (*Request, error) {
	const op = "send_request"

	if err := validateSendInput(sendInput{ToUsername: toUsername, Permission: permission}); err != nil {
		metrics.OpsTotal.WithLabelValues(op, "invalid").Inc()
		return nil, err
	}

	user, err := s.actingUser(ctx, op)
	if err != nil {
		return nil, err
	}

	body := newRequestBody{
		FromUserID: user.ID,
		ToUsername: toUsername,
		Permission: permission,
	}

	data, resp, err := s.http.PostJSON(ctx, s.baseURL+"/share/request", body, authHeader(user))
	if err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		metrics.OpsTotal.WithLabelValues(op, "rejected").Inc()
		return nil, remoteError(resp.StatusCode, data)
	}

	var created Request
	if err := json.Unmarshal(data, &created); err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	metrics.OpsTotal.WithLabelValues(op, "ok").Inc()
	s.logger.Debug("share request sent", "to", toUsername, "permission", permission, "id", created.ID)
	return &created, nil
}

// ReceivedRequests lists pending requests addressed to the current user,
// most recent first. A failure returns a nil slice and a non-nil error so
// callers can tell "zero requests" apart from "fetch failed".
func (s *Service) ReceivedRequests(ctx context.Context) ([]Request, error) {
	const op = "received_requests"

	user, err := s.actingUser(ctx, op)
	if err != nil {
		return nil, err
	}

	return s.listRequests(ctx, op, s.baseURL+"/share/received/"+url.PathEscape(user.ID), user)
}

// SentRequests lists requests created by the current user, most recent first.
func (s *Service) SentRequests(ctx context.Context) ([]Request, error) {
	const op = "sent_requests"

	user, err := s.actingUser(ctx, op)
	if err != nil {
		return nil, err
	}

	return s.listRequests(ctx, op, s.baseURL+"/share/sent/"+url.PathEscape(user.ID), user)
}

// Respond accepts or rejects a pending request. Responding to a request
// already in a terminal state fails with *RemoteError; it never silently
// succeeds. Single-flight per request id is the caller's concern (the inbox
// enforces it); this method is a pure remote call.
func (s *Service) Respond(ctx context.Context, requestID string, action Action) (*RespondResult, error) {
	const op = "respond"

	if requestID == "" {
		metrics.OpsTotal.WithLabelValues(op, "invalid").Inc()
		return nil, fmt.Errorf("%w: request id is required", ErrInvalidInput)
	}
	if !action.Valid() {
		metrics.OpsTotal.WithLabelValues(op, "invalid").Inc()
		return nil, fmt.Errorf("%w: action must be accept or reject", ErrInvalidInput)
	}

	user, err := s.actingUser(ctx, op)
	if err != nil {
		return nil, err
	}

	data, resp, err := s.http.PostJSON(ctx, s.baseURL+"/share/respond", respondBody{RequestID: requestID, Action: action}, authHeader(user))
	if err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		metrics.OpsTotal.WithLabelValues(op, "rejected").Inc()
		return nil, remoteError(resp.StatusCode, data)
	}

	var result RespondResult
	if err := json.Unmarshal(data, &result); err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	metrics.OpsTotal.WithLabelValues(op, "ok").Inc()
	s.logger.Debug("responded to share request", "id", requestID, "action", action, "status", result.Status)
	return &result, nil
}

// SharedWith lists the grantors whose accepted requests name the current
// user as recipient, with the granted permission.
func (s *Service) SharedWith(ctx context.Context) ([]Grant, error) {
	const op = "shared_with"

	user, err := s.actingUser(ctx, op)
	if err != nil {
		return nil, err
	}

	data, resp, err := s.http.GetJSON(ctx, s.baseURL+"/share/shared-with/"+url.PathEscape(user.ID), authHeader(user))
	if err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		metrics.OpsTotal.WithLabelValues(op, "rejected").Inc()
		return nil, remoteError(resp.StatusCode, data)
	}

	var grants []Grant
	if err := json.Unmarshal(data, &grants); err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	metrics.OpsTotal.WithLabelValues(op, "ok").Inc()
	return grants, nil
}

// listRequests fetches and decodes a request listing endpoint.
func (s *Service) listRequests(ctx context.Context, op, urlStr string, user *identity.User) ([]Request, error) {
	data, resp, err := s.http.GetJSON(ctx, urlStr, authHeader(user))
	if err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		metrics.OpsTotal.WithLabelValues(op, "rejected").Inc()
		return nil, remoteError(resp.StatusCode, data)
	}

	var requests []Request
	if err := json.Unmarshal(data, &requests); err != nil {
		metrics.OpsTotal.WithLabelValues(op, "network").Inc()
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	metrics.OpsTotal.WithLabelValues(op, "ok").Inc()
	return requests, nil
}

// actingUser resolves the current identity, short-circuiting with
// ErrUnauthenticated before any network I/O when none is present.
func (s *Service) actingUser(ctx context.Context, op string) (*identity.User, error) {
	user, err := s.identity.Current(ctx)
	if err != nil {
		metrics.OpsTotal.WithLabelValues(op, "unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}
	if user.ID == "" || user.AuthToken == "" {
		metrics.OpsTotal.WithLabelValues(op, "unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// authHeader builds the Basic credential header from the persisted record.
func authHeader(user *identity.User) http.Header {
	h := make(http.Header, 1)
	h.Set("Authorization", "Basic "+user.AuthToken)
	return h
}

// remoteError decodes the service's {"detail": ...} body, falling back to an
// empty detail when the body is not parseable.
func remoteError(status int, body []byte) *RemoteError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail != "" {
		return &RemoteError{StatusCode: status, Detail: eb.Detail}
	}
	return &RemoteError{StatusCode: status}
}
