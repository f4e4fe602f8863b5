package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/hierarchy"
	"github.com/jmolenaar/rangedesk/internal/models"
)

// Capabilities answers capability queries for the range/team surfaces by
// combining permission checks with tenant scoping: a user operates on a team
// when they are a member of it or of one of its ancestors. Callers consult
// these before invoking mutating services; the services themselves only
// validate.
type Capabilities struct {
	db       *gorm.DB
	checker  *Checker
	resolver *hierarchy.Resolver
}

// NewCapabilities wires a Capabilities instance over the shared database handle.
func NewCapabilities(db *gorm.DB) (*Capabilities, error) {
	if db == nil {
		return nil, errors.New("capabilities: db is required")
	}

	checker, err := NewChecker(db)
	if err != nil {
		return nil, err
	}

	resolver, err := hierarchy.NewResolver(db)
	if err != nil {
		return nil, err
	}

	return &Capabilities{db: db, checker: checker, resolver: resolver}, nil
}

// CanViewTeam reports whether the user may read the team and its ranges.
func (c *Capabilities) CanViewTeam(ctx context.Context, userID, teamID string) (bool, error) {
	return c.scopedCheck(ctx, userID, teamID, "team.view")
}

// CanManageTeam reports whether the user may mutate the team.
func (c *Capabilities) CanManageTeam(ctx context.Context, userID, teamID string) (bool, error) {
	return c.scopedCheck(ctx, userID, teamID, "team.manage")
}

// CanCreateRange reports whether the user may allocate a range for the team.
func (c *Capabilities) CanCreateRange(ctx context.Context, userID, teamID string) (bool, error) {
	return c.scopedCheck(ctx, userID, teamID, "range.create")
}

// CanEditRange reports whether the user may modify the given range.
func (c *Capabilities) CanEditRange(ctx context.Context, userID string, rng *models.NumberRange) (bool, error) {
	if rng == nil {
		return false, errors.New("capabilities: range is required")
	}
	return c.scopedCheck(ctx, userID, rng.TeamID, "range.edit")
}

// CanDeleteRange reports whether the user may delete the given range.
func (c *Capabilities) CanDeleteRange(ctx context.Context, userID string, rng *models.NumberRange) (bool, error) {
	if rng == nil {
		return false, errors.New("capabilities: range is required")
	}
	return c.scopedCheck(ctx, userID, rng.TeamID, "range.delete")
}

func (c *Capabilities) scopedCheck(ctx context.Context, userID, teamID, permissionID string) (bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	teamID = strings.TrimSpace(teamID)
	if userID == "" || teamID == "" {
		return false, errors.New("capabilities: user id and team id are required")
	}

	allowed, err := c.checker.Check(ctx, userID, permissionID)
	if err != nil || !allowed {
		return false, err
	}

	var user models.User
	if err := c.db.WithContext(ctx).
		Preload("Teams").
		First(&user, "id = ?", userID).Error; err != nil {
		return false, fmt.Errorf("capabilities: load user: %w", err)
	}

	if user.IsRoot {
		return true, nil
	}

	// permission.manage holders administer all teams.
	if global, err := c.checker.Check(ctx, userID, "permission.manage"); err != nil {
		return false, err
	} else if global {
		return true, nil
	}

	memberOf := make(map[string]struct{}, len(user.Teams))
	for _, team := range user.Teams {
		memberOf[team.ID] = struct{}{}
	}

	if _, ok := memberOf[teamID]; ok {
		return true, nil
	}

	ancestors, err := c.resolver.Ancestors(ctx, teamID)
	if err != nil {
		return false, err
	}
	for _, ancestor := range ancestors {
		if _, ok := memberOf[ancestor.ID]; ok {
			return true, nil
		}
	}

	return false, nil
}
