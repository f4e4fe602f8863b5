package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/internal/ranges"
	"github.com/jmolenaar/rangedesk/pkg/metrics"
)

// RangeCandidate describes a number range awaiting validation. Bounds are in
// block units; ExcludeID skips the record being updated when scanning for
// overlaps.
type RangeCandidate struct {
	TeamID     string
	BlockStart int64
	BlockEnd   int64
	ExcludeID  string
}

// RangeValidator checks candidate ranges against the team hierarchy and the
// existing allocations. The checks run in a fixed order and fail fast:
// bounds, same-team overlap, parent containment, sibling overlap.
type RangeValidator struct {
	db *gorm.DB
}

// NewRangeValidator constructs a RangeValidator over the provided database.
func NewRangeValidator(db *gorm.DB) (*RangeValidator, error) {
	if db == nil {
		return nil, errors.New("range validator: db is required")
	}
	return &RangeValidator{db: db}, nil
}

// withTx rebinds the validator to a transaction handle so validation reads
// share the isolation level of the write that follows them.
func (v *RangeValidator) withTx(tx *gorm.DB) *RangeValidator {
	return &RangeValidator{db: tx}
}

// Validate returns nil when the candidate may be persisted, a
// *ValidationError describing the first violated rule otherwise.
func (v *RangeValidator) Validate(ctx context.Context, c RangeCandidate) error {
	ctx = ensureContext(ctx)

	outcome, err := v.validate(ctx, c)
	metrics.RangeValidations.WithLabelValues(outcome).Inc()
	return err
}

func (v *RangeValidator) validate(ctx context.Context, c RangeCandidate) (string, error) {
	if c.BlockEnd <= c.BlockStart {
		return "bounds", newValidationError("range_end",
			"end range (%d) must be greater than start range (%d)", c.BlockEnd, c.BlockStart)
	}

	teamID := strings.TrimSpace(c.TeamID)
	if teamID == "" {
		return "error", errors.New("range validator: team id is required")
	}

	var team models.Team
	err := v.db.WithContext(ctx).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "error", ErrTeamNotFound
	}
	if err != nil {
		return "error", fmt.Errorf("range validator: load team: %w", err)
	}

	startNumber, endNumber := ranges.BlockToRaw(c.BlockStart, c.BlockEnd)

	overlapping, err := v.hasOverlap(ctx, []string{team.ID}, startNumber, endNumber, c.ExcludeID)
	if err != nil {
		return "error", err
	}
	if overlapping {
		return "overlap", newValidationError("range_start",
			"your range (%d-%d) overlaps with an existing range for the same team", c.BlockStart, c.BlockEnd)
	}

	// Parent containment: the candidate must fit entirely inside at least one
	// of the parent team's ranges. Root teams may claim any free range.
	if !team.IsRoot() {
		contained, parentRanges, err := v.containedInParent(ctx, *team.ParentID, startNumber, endNumber)
		if err != nil {
			return "error", err
		}
		if !contained {
			if len(parentRanges) == 0 {
				return "containment", newValidationError("range_start",
					"your range (%d-%d) cannot be allocated: your parent team has no ranges",
					c.BlockStart, c.BlockEnd)
			}
			return "containment", newValidationError("range_start",
				"your range (%d-%d) must be within at least one of your parent team's ranges: %s",
				c.BlockStart, c.BlockEnd, formatRangeList(parentRanges))
		}
	}

	// Sibling overlap: teams sharing the parent (or the other root teams)
	// must not hold intersecting allocations.
	siblingIDs, err := v.siblingTeamIDs(ctx, &team)
	if err != nil {
		return "error", err
	}
	if len(siblingIDs) > 0 {
		conflict, err := v.firstOverlap(ctx, siblingIDs, startNumber, endNumber, c.ExcludeID)
		if err != nil {
			return "error", err
		}
		if conflict != nil {
			teamName := conflict.TeamID
			if conflict.Team != nil {
				teamName = conflict.Team.Name
			}
			return "sibling_overlap", newValidationError("range_start",
				"your range (%d-%d) overlaps with existing range %s from team %s",
				c.BlockStart, c.BlockEnd,
				ranges.FormatBlocks(conflict.StartNumber, conflict.EndNumber), teamName)
		}
	}

	return "ok", nil
}

func (v *RangeValidator) hasOverlap(ctx context.Context, teamIDs []string, startNumber, endNumber int64, excludeID string) (bool, error) {
	query := v.db.WithContext(ctx).
		Model(&models.NumberRange{}).
		Where("team_id IN ?", teamIDs).
		Where("start_number <= ? AND end_number >= ?", endNumber, startNumber)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("range validator: overlap scan: %w", err)
	}
	return count > 0, nil
}

func (v *RangeValidator) firstOverlap(ctx context.Context, teamIDs []string, startNumber, endNumber int64, excludeID string) (*models.NumberRange, error) {
	query := v.db.WithContext(ctx).
		Preload("Team").
		Where("team_id IN ?", teamIDs).
		Where("start_number <= ? AND end_number >= ?", endNumber, startNumber).
		Order("start_number ASC")
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var conflict models.NumberRange
	err := query.First(&conflict).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("range validator: sibling overlap scan: %w", err)
	}
	return &conflict, nil
}

func (v *RangeValidator) containedInParent(ctx context.Context, parentTeamID string, startNumber, endNumber int64) (bool, []models.NumberRange, error) {
	var parentRanges []models.NumberRange
	if err := v.db.WithContext(ctx).
		Where("team_id = ?", parentTeamID).
		Order("start_number ASC").
		Find(&parentRanges).Error; err != nil {
		return false, nil, fmt.Errorf("range validator: load parent ranges: %w", err)
	}

	for _, parent := range parentRanges {
		if ranges.Contains(parent.StartNumber, parent.EndNumber, startNumber, endNumber) {
			return true, parentRanges, nil
		}
	}
	return false, parentRanges, nil
}

func (v *RangeValidator) siblingTeamIDs(ctx context.Context, team *models.Team) ([]string, error) {
	query := v.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("id <> ?", team.ID)
	if team.IsRoot() {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *team.ParentID)
	}

	var siblings []models.Team
	if err := query.Select("id").Find(&siblings).Error; err != nil {
		return nil, fmt.Errorf("range validator: load sibling teams: %w", err)
	}

	ids := make([]string, 0, len(siblings))
	for _, sibling := range siblings {
		ids = append(ids, sibling.ID)
	}
	return ids, nil
}

func formatRangeList(rangeRows []models.NumberRange) string {
	parts := make([]string, 0, len(rangeRows))
	for _, row := range rangeRows {
		parts = append(parts, ranges.FormatBlocks(row.StartNumber, row.EndNumber))
	}
	return strings.Join(parts, ", ")
}
