// Package gate is the central authorization checkpoint. Each role resolves
// to a profile carrying resource:action permissions; resource-specific
// policies add record-level checks (e.g. assignment scoping) on top.
package gate

import (
	"context"
	"errors"
)

// Sentinel errors returned by Gate.Authorize.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoPolicyDefined = errors.New("no policy defined for resource")
)

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionAssign Action = "assign"
	ActionDelete Action = "delete"
)

// Policy adds a record-level check for one resource type. For list/create
// the resource is nil and only profile permissions apply.
type Policy interface {
	Can(ctx context.Context, userID uint, action Action, resource any) bool
}

// Gate combines profile permissions with per-resource policies.
// Authorization flow: resolve the user's profile, check the
// resource:action permission, then consult the resource policy whenever a
// concrete resource was given. A resource without a registered policy is
// rejected with ErrNoPolicyDefined.
type Gate struct {
	resolver ProfileResolver
	policies map[string]Policy
}

func New(resolver ProfileResolver) *Gate {
	return &Gate{resolver: resolver, policies: make(map[string]Policy)}
}

// Register adds a record-level policy for a resource type (e.g. "client").
func (g *Gate) Register(resourceType string, p Policy) {
	g.policies[resourceType] = p
}

// Authorize returns nil when the user may perform action on the resource.
func (g *Gate) Authorize(ctx context.Context, userID uint, action Action, resourceType string, resource any) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, userID)
	if err != nil || profile == nil {
		return ErrUnauthorized
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrUnauthorized
	}
	if resource != nil {
		policy, ok := g.policies[resourceType]
		if !ok {
			// A concrete record with no registered policy means the
			// caller skipped wiring; refuse rather than fall open.
			return ErrNoPolicyDefined
		}
		if !policy.Can(ctx, userID, action, resource) {
			return ErrUnauthorized
		}
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate) Can(ctx context.Context, userID uint, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, userID, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission, without a record-level
// check. Used to compute the capability object handed to the client.
func (g *Gate) CanProfile(ctx context.Context, userID uint, action Action, resourceType string) bool {
	if userID == 0 {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, userID)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
