// Package hierarchy resolves ancestor/descendant relationships over the
// team tree stored as an adjacency list (id -> parent_id).
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/models"
	apperrors "github.com/jmolenaar/rangedesk/pkg/errors"
)

var (
	// ErrHierarchyCycle signals corrupted tree data: a traversal revisited a node.
	ErrHierarchyCycle = apperrors.New("HIERARCHY_CYCLE", "Team hierarchy contains a cycle", http.StatusInternalServerError)
	// ErrBrokenParentRef signals corrupted tree data: a parent_id pointing at a
	// team that does not exist.
	ErrBrokenParentRef = apperrors.New("HIERARCHY_BROKEN_PARENT", "Team parent reference is broken", http.StatusInternalServerError)
	// ErrTeamNotFound indicates the referenced team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrOwnParent rejects assigning a team as its own parent.
	ErrOwnParent = apperrors.New("TEAM_OWN_PARENT", "A team cannot be its own parent", http.StatusBadRequest)
	// ErrDescendantParent rejects a parent assignment that would create a cycle.
	ErrDescendantParent = apperrors.New("TEAM_DESCENDANT_PARENT", "Cannot set a descendant as parent", http.StatusBadRequest)
)

// Resolver traverses the team tree.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver backed by the provided database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("hierarchy: db is required")
	}
	return &Resolver{db: db}, nil
}

// Descendants returns the IDs of every team below the given team, excluding
// the team itself. The walk is breadth-first over parent_id edges with a
// visited set, so malformed near-cyclic data surfaces as ErrHierarchyCycle
// instead of unbounded recursion.
func (r *Resolver) Descendants(ctx context.Context, teamID string) ([]string, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, errors.New("hierarchy: team id is required")
	}

	visited := map[string]struct{}{teamID: {}}
	frontier := []string{teamID}
	var descendants []string

	for len(frontier) > 0 {
		var children []models.Team
		if err := r.db.WithContext(ctx).
			Select("id").
			Where("parent_id IN ?", frontier).
			Find(&children).Error; err != nil {
			return nil, fmt.Errorf("hierarchy: load children: %w", err)
		}

		frontier = frontier[:0]
		for _, child := range children {
			if _, seen := visited[child.ID]; seen {
				return nil, ErrHierarchyCycle
			}
			visited[child.ID] = struct{}{}
			descendants = append(descendants, child.ID)
			frontier = append(frontier, child.ID)
		}
	}

	return descendants, nil
}

// Ancestors returns the chain of teams above the given team, nearest-first.
func (r *Resolver) Ancestors(ctx context.Context, teamID string) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, errors.New("hierarchy: team id is required")
	}

	var team models.Team
	err := r.db.WithContext(ctx).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hierarchy: load team: %w", err)
	}

	visited := map[string]struct{}{team.ID: {}}
	var ancestors []models.Team

	current := team
	for current.ParentID != nil && *current.ParentID != "" {
		parentID := *current.ParentID
		if _, seen := visited[parentID]; seen {
			return nil, ErrHierarchyCycle
		}

		var parent models.Team
		err := r.db.WithContext(ctx).First(&parent, "id = ?", parentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBrokenParentRef
		}
		if err != nil {
			return nil, fmt.Errorf("hierarchy: load parent: %w", err)
		}

		visited[parent.ID] = struct{}{}
		ancestors = append(ancestors, parent)
		current = parent
	}

	return ancestors, nil
}

// IsDescendantOf reports whether team a sits somewhere below team b.
func (r *Resolver) IsDescendantOf(ctx context.Context, a, b string) (bool, error) {
	ancestors, err := r.Ancestors(ctx, a)
	if err != nil {
		return false, err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID == b {
			return true, nil
		}
	}
	return false, nil
}

// IsAncestorOf reports whether team a sits somewhere above team b.
func (r *Resolver) IsAncestorOf(ctx context.Context, a, b string) (bool, error) {
	return r.IsDescendantOf(ctx, b, a)
}

// ValidateParent checks a candidate parent assignment for team teamID.
// It fails when the parent is the team itself or one of its descendants,
// which would cut a cycle into the tree. A nil assignment (detaching to
// root) is always valid.
func (r *Resolver) ValidateParent(ctx context.Context, teamID string, parentID *string) error {
	if parentID == nil || strings.TrimSpace(*parentID) == "" {
		return nil
	}
	candidate := strings.TrimSpace(*parentID)

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		// New team: any existing parent is acceptable.
		return r.ensureExists(ctx, candidate)
	}

	if candidate == teamID {
		return ErrOwnParent
	}

	if err := r.ensureExists(ctx, candidate); err != nil {
		return err
	}

	descendants, err := r.Descendants(ctx, teamID)
	if err != nil {
		return err
	}
	for _, id := range descendants {
		if id == candidate {
			return ErrDescendantParent
		}
	}

	return nil
}

func (r *Resolver) ensureExists(ctx context.Context, teamID string) error {
	ctx = ensureContext(ctx)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("id = ?", teamID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("hierarchy: check team: %w", err)
	}
	if count == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
