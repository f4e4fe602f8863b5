package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/database/testutil"
	"github.com/jmolenaar/rangedesk/internal/models"
	"github.com/jmolenaar/rangedesk/internal/ranges"
)

func mustCreateTeam(t *testing.T, db *gorm.DB, name string, parentID *string) *models.Team {
	t.Helper()
	team := &models.Team{Name: name, Type: models.TeamTypeTeam, ParentID: parentID, IsActive: true}
	require.NoError(t, db.Create(team).Error)
	return team
}

func mustCreateRange(t *testing.T, db *gorm.DB, teamID string, blockStart, blockEnd int64) *models.NumberRange {
	t.Helper()
	start, end := ranges.BlockToRaw(blockStart, blockEnd)
	rng := &models.NumberRange{TeamID: teamID, StartNumber: start, EndNumber: end}
	require.NoError(t, db.Create(rng).Error)
	return rng
}

func requireValidationError(t *testing.T, err error, field string) *ValidationError {
	t.Helper()
	require.Error(t, err)
	verr, ok := AsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	require.Equal(t, field, verr.Field)
	return verr
}

func TestRangeValidatorBounds(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	team := mustCreateTeam(t, db, "Division", nil)

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	err = validator.Validate(context.Background(), RangeCandidate{TeamID: team.ID, BlockStart: 4, BlockEnd: 4})
	verr := requireValidationError(t, err, "range_end")
	require.Contains(t, verr.Message, "must be greater than")

	err = validator.Validate(context.Background(), RangeCandidate{TeamID: team.ID, BlockStart: 4, BlockEnd: 2})
	requireValidationError(t, err, "range_end")
}

func TestRangeValidatorUnknownTeam(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	err = validator.Validate(context.Background(), RangeCandidate{TeamID: "missing", BlockStart: 0, BlockEnd: 1})
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestRangeValidatorSameTeamOverlap(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	team := mustCreateTeam(t, db, "Division", nil)
	existing := mustCreateRange(t, db, team.ID, 0, 4)

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	err = validator.Validate(context.Background(), RangeCandidate{TeamID: team.ID, BlockStart: 2, BlockEnd: 6})
	verr := requireValidationError(t, err, "range_start")
	require.Contains(t, verr.Message, "overlaps with an existing range")

	// Excluding the existing record (the update case) clears the conflict.
	err = validator.Validate(context.Background(), RangeCandidate{
		TeamID: team.ID, BlockStart: 2, BlockEnd: 6, ExcludeID: existing.ID,
	})
	require.NoError(t, err)

	// Beyond the existing range is fine: block 4 ends at raw 4000, block
	// pair (4, 6) starts at raw 4001.
	err = validator.Validate(context.Background(), RangeCandidate{TeamID: team.ID, BlockStart: 4, BlockEnd: 6})
	require.NoError(t, err)
}

func TestRangeValidatorParentContainment(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	division := mustCreateTeam(t, db, "Division", nil)
	dept := mustCreateTeam(t, db, "Dept A", &division.ID)
	mustCreateRange(t, db, division.ID, 0, 4)
	mustCreateRange(t, db, division.ID, 10, 14)

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	// Fits inside the first parent range.
	require.NoError(t, validator.Validate(context.Background(),
		RangeCandidate{TeamID: dept.ID, BlockStart: 0, BlockEnd: 2}))

	// Fits inside the second parent range.
	require.NoError(t, validator.Validate(context.Background(),
		RangeCandidate{TeamID: dept.ID, BlockStart: 11, BlockEnd: 13}))

	// Straddles the gap between the parent ranges.
	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: dept.ID, BlockStart: 3, BlockEnd: 11})
	verr := requireValidationError(t, err, "range_start")
	require.Contains(t, verr.Message, "parent team's ranges")
	require.Contains(t, verr.Message, "0-4")
	require.Contains(t, verr.Message, "10-14")

	// Entirely outside any parent range.
	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: dept.ID, BlockStart: 20, BlockEnd: 22})
	requireValidationError(t, err, "range_start")
}

func TestRangeValidatorParentWithoutRanges(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	division := mustCreateTeam(t, db, "Division", nil)
	dept := mustCreateTeam(t, db, "Dept A", &division.ID)

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: dept.ID, BlockStart: 0, BlockEnd: 2})
	verr := requireValidationError(t, err, "range_start")
	require.Contains(t, verr.Message, "parent team has no ranges")
	require.NotContains(t, verr.Message, "parent team's ranges")
}

func TestRangeValidatorSiblingOverlap(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	division := mustCreateTeam(t, db, "Division", nil)
	deptA := mustCreateTeam(t, db, "Dept A", &division.ID)
	deptB := mustCreateTeam(t, db, "Dept B", &division.ID)
	mustCreateRange(t, db, division.ID, 0, 5)
	mustCreateRange(t, db, deptA.ID, 0, 2)

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	// Dept B wants blocks 1-3 but Dept A already holds 0-2.
	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: deptB.ID, BlockStart: 1, BlockEnd: 3})
	verr := requireValidationError(t, err, "range_start")
	require.Contains(t, verr.Message, "0-2")
	require.Contains(t, verr.Message, "Dept A")

	// Blocks 2-4 start where Dept A's allocation ends.
	require.NoError(t, validator.Validate(context.Background(),
		RangeCandidate{TeamID: deptB.ID, BlockStart: 2, BlockEnd: 4}))
}

func TestRangeValidatorRootSiblings(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	rootA := mustCreateTeam(t, db, "Root A", nil)
	rootB := mustCreateTeam(t, db, "Root B", nil)
	mustCreateRange(t, db, rootA.ID, 0, 10)

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	// Root teams without a parent still compete with each other.
	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: rootB.ID, BlockStart: 5, BlockEnd: 15})
	requireValidationError(t, err, "range_start")

	require.NoError(t, validator.Validate(context.Background(),
		RangeCandidate{TeamID: rootB.ID, BlockStart: 10, BlockEnd: 15}))
}

// Mirrors a full allocation round: a division owns blocks 0-4 outright, the
// first department carves out 0-2, and the second department may not cross it.
func TestRangeValidatorScenario(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	division := mustCreateTeam(t, db, "Division", nil)
	deptA := mustCreateTeam(t, db, "Dept A", &division.ID)
	deptB := mustCreateTeam(t, db, "Dept B", &division.ID)

	validator, err := NewRangeValidator(db)
	require.NoError(t, err)

	require.NoError(t, validator.Validate(context.Background(),
		RangeCandidate{TeamID: division.ID, BlockStart: 0, BlockEnd: 4}))
	mustCreateRange(t, db, division.ID, 0, 4)

	require.NoError(t, validator.Validate(context.Background(),
		RangeCandidate{TeamID: deptA.ID, BlockStart: 0, BlockEnd: 2}))
	mustCreateRange(t, db, deptA.ID, 0, 2)

	// Dept B overlapping Dept A fails on the sibling check.
	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: deptB.ID, BlockStart: 1, BlockEnd: 3})
	requireValidationError(t, err, "range_start")

	// Dept A extending over its own allocation fails on the same-team check.
	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: deptA.ID, BlockStart: 2, BlockEnd: 3})
	require.NoError(t, err)
	err = validator.Validate(context.Background(),
		RangeCandidate{TeamID: deptA.ID, BlockStart: 1, BlockEnd: 3})
	verr := requireValidationError(t, err, "range_start")
	require.Contains(t, verr.Message, "same team")
}
