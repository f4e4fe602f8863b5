package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/internal/ranges"
)

// NumberRangeService manages the lifecycle of number ranges. Every write runs
// validation and persistence inside one serializable transaction so that two
// concurrent requests cannot both pass validation against the same snapshot
// and commit overlapping ranges.
type NumberRangeService struct {
	db           *gorm.DB
	auditService *AuditService
	validator    *RangeValidator
}

// NewNumberRangeService constructs a NumberRangeService with its validator and
// audit trail wired in.
func NewNumberRangeService(db *gorm.DB, auditService *AuditService) (*NumberRangeService, error) {
	if db == nil {
		return nil, errors.New("number range service: db is required")
	}
	if auditService == nil {
		return nil, errors.New("number range service: audit service is required")
	}
	validator, err := NewRangeValidator(db)
	if err != nil {
		return nil, err
	}
	return &NumberRangeService{
		db:           db,
		auditService: auditService,
		validator:    validator,
	}, nil
}

// CreateNumberRangeInput carries the fields for a new range. RangeStart and
// RangeEnd are in block units.
type CreateNumberRangeInput struct {
	TeamID      string
	ParentID    *string
	RangeStart  int64
	RangeEnd    int64
	Description string
	CreatedBy   string
}

// UpdateNumberRangeInput carries the mutable fields of an existing range.
// Nil pointers leave the current value untouched. A ParentID pointing at the
// empty string detaches the range from its parent.
type UpdateNumberRangeInput struct {
	RangeStart  *int64
	RangeEnd    *int64
	ParentID    *string
	Description *string
}

var serializableTx = &sql.TxOptions{Isolation: sql.LevelSerializable}

// ValidateRange runs the full rule chain for a candidate without persisting
// anything. It reads committed state only, so a clean result can still race
// with a concurrent write; Create and Update revalidate inside their
// transactions.
func (s *NumberRangeService) ValidateRange(ctx context.Context, candidate RangeCandidate) error {
	return s.validator.Validate(ensureContext(ctx), candidate)
}

// Create validates and persists a new range atomically.
func (s *NumberRangeService) Create(ctx context.Context, input CreateNumberRangeInput) (*models.NumberRange, error) {
	ctx = ensureContext(ctx)

	rng := &models.NumberRange{
		TeamID:      strings.TrimSpace(input.TeamID),
		ParentID:    input.ParentID,
		Description: strings.TrimSpace(input.Description),
	}
	if createdBy := strings.TrimSpace(input.CreatedBy); createdBy != "" {
		rng.CreatedBy = &createdBy
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.ParentID != nil {
			if err := ensureParentRange(ctx, tx, *input.ParentID); err != nil {
				return err
			}
		}

		candidate := RangeCandidate{
			TeamID:     rng.TeamID,
			BlockStart: input.RangeStart,
			BlockEnd:   input.RangeEnd,
		}
		if err := s.validator.withTx(tx).Validate(ctx, candidate); err != nil {
			return err
		}

		rng.StartNumber, rng.EndNumber = ranges.BlockToRaw(input.RangeStart, input.RangeEnd)
		if err := tx.Create(rng).Error; err != nil {
			return fmt.Errorf("create number range: %w", err)
		}
		return nil
	}, serializableTx)
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   rng.CreatedBy,
		Action:   "range.create",
		Resource: "number_range:" + rng.ID,
		Result:   "success",
	})
	return rng, nil
}

// Update revalidates the modified bounds against every rule, excluding the
// range itself from overlap scans, then persists atomically. Re-parenting
// verifies the new parent range exists first.
func (s *NumberRangeService) Update(ctx context.Context, id string, input UpdateNumberRangeInput) (*models.NumberRange, error) {
	ctx = ensureContext(ctx)

	var rng models.NumberRange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rng, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRangeNotFound
			}
			return fmt.Errorf("load number range: %w", err)
		}

		if input.ParentID != nil {
			parentID := strings.TrimSpace(*input.ParentID)
			switch {
			case parentID == "":
				rng.ParentID = nil
			case parentID == rng.ID:
				return newValidationError("parent_id", "a range cannot be its own parent")
			default:
				if err := ensureParentRange(ctx, tx, parentID); err != nil {
					return err
				}
				rng.ParentID = &parentID
			}
		}

		blockStart, blockEnd := ranges.RawToBlock(rng.StartNumber, rng.EndNumber)
		if input.RangeStart != nil {
			blockStart = *input.RangeStart
		}
		if input.RangeEnd != nil {
			blockEnd = *input.RangeEnd
		}

		candidate := RangeCandidate{
			TeamID:     rng.TeamID,
			BlockStart: blockStart,
			BlockEnd:   blockEnd,
			ExcludeID:  rng.ID,
		}
		if err := s.validator.withTx(tx).Validate(ctx, candidate); err != nil {
			return err
		}

		rng.StartNumber, rng.EndNumber = ranges.BlockToRaw(blockStart, blockEnd)
		if input.Description != nil {
			rng.Description = strings.TrimSpace(*input.Description)
		}
		if err := tx.Save(&rng).Error; err != nil {
			return fmt.Errorf("update number range: %w", err)
		}
		return nil
	}, serializableTx)
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "range.update",
		Resource: "number_range:" + rng.ID,
		Result:   "success",
	})
	return &rng, nil
}

// Delete removes a range unless child ranges still subdivide it.
func (s *NumberRangeService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rng models.NumberRange
		if err := tx.First(&rng, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRangeNotFound
			}
			return fmt.Errorf("load number range: %w", err)
		}

		var childCount int64
		if err := tx.Model(&models.NumberRange{}).
			Where("parent_id = ?", rng.ID).
			Count(&childCount).Error; err != nil {
			return fmt.Errorf("count child ranges: %w", err)
		}
		if childCount > 0 {
			return ErrRangeHasChildren
		}

		if err := tx.Delete(&rng).Error; err != nil {
			return fmt.Errorf("delete number range: %w", err)
		}
		return nil
	}, serializableTx)
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "range.delete",
		Resource: "number_range:" + id,
		Result:   "success",
	})
	return nil
}

// GetByID loads one range with its team.
func (s *NumberRangeService) GetByID(ctx context.Context, id string) (*models.NumberRange, error) {
	ctx = ensureContext(ctx)

	var rng models.NumberRange
	err := s.db.WithContext(ctx).Preload("Team").First(&rng, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRangeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load number range: %w", err)
	}
	return &rng, nil
}

// ListByTeam returns a team's ranges ordered by start number.
func (s *NumberRangeService) ListByTeam(ctx context.Context, teamID string) ([]models.NumberRange, error) {
	ctx = ensureContext(ctx)

	var rows []models.NumberRange
	if err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("start_number ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list number ranges: %w", err)
	}
	return rows, nil
}

func ensureParentRange(ctx context.Context, tx *gorm.DB, parentID string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&models.NumberRange{}).
		Where("id = ?", parentID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check parent range: %w", err)
	}
	if count == 0 {
		return ErrParentRangeNotFound
	}
	return nil
}
