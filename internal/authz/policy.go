// Package authz holds the owner-or-admin predicate applied to resource routes.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/techdiscoveria/discoveria/internal/domain/user"
)

var ErrForbidden = errors.New("forbidden")

type RoleLookup interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type Policy struct {
	users   RoleLookup
	enforce bool
}

// NewPolicy returns a policy. With enforce=false every check passes, reproducing the open
// behavior of the legacy API.
func NewPolicy(users RoleLookup, enforce bool) *Policy {
	return &Policy{users: users, enforce: enforce}
}

func (p *Policy) Enforcing() bool {
	return p != nil && p.enforce
}

// SameOwner compares emails the way the stores key users: exact after trimming.
// "A@x.com" and "a@x.com" are different accounts.
func SameOwner(caller, owner string) bool {
	caller, owner = user.NormalizeEmail(caller), user.NormalizeEmail(owner)
	return caller != "" && caller == owner
}

// Authorize allows the owner of a resource or an administrator.
// The role is only looked up when the caller is not the owner.
func (p *Policy) Authorize(ctx context.Context, callerEmail, ownerEmail string) error {
	if !p.Enforcing() {
		return nil
	}

	if SameOwner(callerEmail, ownerEmail) {
		return nil
	}

	return p.RequireAdmin(ctx, callerEmail)
}

// RequireAdmin allows administrators only.
func (p *Policy) RequireAdmin(ctx context.Context, callerEmail string) error {
	if !p.Enforcing() {
		return nil
	}

	if strings.TrimSpace(callerEmail) == "" {
		return ErrForbidden
	}

	u, err := p.users.GetByEmail(ctx, callerEmail)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("authz role lookup: %w", err)
	}

	if !u.IsAdmin() {
		return ErrForbidden
	}

	return nil
}
