// Package pantry implements the pantry-switcher consumer contract: the
// selector options derived from accepted shares and the per-permission view
// capabilities.
package pantry

import (
	"context"

	"github.com/pantrylink/pantrylink-go/internal/share"
)

// GrantLister is the client surface the selector needs.
type GrantLister interface {
	SharedWith(ctx context.Context) ([]share.Grant, error)
}

// Capabilities enumerates the edit affordances present in a view. For a
// view-only pantry the struct is zero: the controls are absent, not
// disabled.
type Capabilities struct {
	AddIngredient    bool
	EditIngredient   bool
	DeleteIngredient bool
}

// Option is one entry in the pantry selector.
type Option struct {
	// OwnerID is empty for the user's own pantry.
	OwnerID    string
	Label      string
	Permission share.Permission
	Own        bool
}

// View describes the ingredient list mode after selecting an option.
type View struct {
	OwnerID      string
	OwnerName    string
	ReadOnly     bool
	Capabilities Capabilities
}

// Selector builds pantry options from the shared-with relationship. It
// fetches once per construction site (view mount); callers wanting fresh
// data build a new option list.
type Selector struct {
	grants GrantLister
}

// NewSelector creates a selector over the given client.
func NewSelector(grants GrantLister) *Selector {
	return &Selector{grants: grants}
}

// Options returns "my pantry" plus one entry per grantor. On fetch failure
// the error is returned alongside the lone own-pantry option so the
// selector stays usable.
func (s *Selector) Options(ctx context.Context) ([]Option, error) {
	own := Option{Label: "My Pantry", Permission: share.PermissionEdit, Own: true}

	grants, err := s.grants.SharedWith(ctx)
	if err != nil {
		return []Option{own}, err
	}

	opts := make([]Option, 0, len(grants)+1)
	opts = append(opts, own)
	seen := make(map[string]bool, len(grants))
	for _, g := range grants {
		if seen[g.UserID] {
			continue
		}
		seen[g.UserID] = true
		opts = append(opts, Option{
			OwnerID:    g.UserID,
			Label:      g.Username,
			Permission: g.Permission,
		})
	}
	return opts, nil
}

// Select resolves an option into the view mode for its pantry.
func Select(opt Option) View {
	if opt.Own {
		return View{
			OwnerName: opt.Label,
			Capabilities: Capabilities{
				AddIngredient:    true,
				EditIngredient:   true,
				DeleteIngredient: true,
			},
		}
	}

	v := View{
		OwnerID:   opt.OwnerID,
		OwnerName: opt.Label,
		ReadOnly:  opt.Permission != share.PermissionEdit,
	}
	if opt.Permission == share.PermissionEdit {
		v.Capabilities = Capabilities{
			AddIngredient:    true,
			EditIngredient:   true,
			DeleteIngredient: true,
		}
	}
	return v
}
