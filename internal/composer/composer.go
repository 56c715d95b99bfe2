// Package composer implements the share-pantry form: collect a target
// username and permission, validate, and send.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pantrylink/pantrylink-go/internal/logutil"
	"github.com/pantrylink/pantrylink-go/internal/share"
)

// NoticeKind classifies the transient message shown after a submit.
type NoticeKind string

const (
	NoticeNone    NoticeKind = ""
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the dismissible message produced by the last submit.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Sender is the client surface the composer needs.
type Sender interface {
	SendRequest(ctx context.Context, toUsername string, permission share.Permission) (*share.Request, error)
}

// Composer holds the form state. Submit clears the username only on
// success, so a rejected target stays in the field for correction; the
// permission selector resets to view after either outcome.
type Composer struct {
	sender Sender
	logger *slog.Logger

	mu         sync.Mutex
	username   string
	permission share.Permission
	notice     Notice
}

// New creates a composer with an empty username and view permission.
func New(sender Sender, logger *slog.Logger) *Composer {
	return &Composer{
		sender:     sender,
		logger:     logutil.NoopIfNil(logger),
		permission: share.PermissionView,
	}
}

// SetUsername updates the typed target username.
func (c *Composer) SetUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

// SetPermission updates the selected permission. Unknown values fall back
// to view.
func (c *Composer) SetPermission(p share.Permission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !p.Valid() {
		p = share.PermissionView
	}
	c.permission = p
}

// Username returns the current field contents.
func (c *Composer) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Permission returns the current selector value.
func (c *Composer) Permission() share.Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// Notice returns the message produced by the last submit.
func (c *Composer) Notice() Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// Submit validates the form and sends the request. The returned error is
// also reflected in Notice for rendering.
func (c *Composer) Submit(ctx context.Context) error {
	c.mu.Lock()
	username := c.username
	permission := c.permission
	c.mu.Unlock()

	created, err := c.sender.SendRequest(ctx, username, permission)

	c.mu.Lock()
	defer c.mu.Unlock()

	// The permission selector returns to view regardless of outcome.
	c.permission = share.PermissionView

	if err != nil {
		c.notice = Notice{Kind: NoticeError, Text: share.UserMessage(err)}
		c.logger.Debug("share request not sent", "to", username, "error", err)
		return err
	}

	c.username = ""
	c.notice = Notice{
		Kind: NoticeSuccess,
		Text: fmt.Sprintf("Share request sent to %s", created.ToUsername),
	}
	return nil
}

// DismissNotice clears the transient message.
func (c *Composer) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = Notice{}
}
