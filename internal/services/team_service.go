package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jmolenaar/rangedesk/internal/hierarchy"
	"github.com/jmolenaar/rangedesk/internal/models"
)

// TeamService manages the team tree and team membership. Structural changes
// go through the hierarchy resolver so a team can never become its own
// ancestor.
type TeamService struct {
	db           *gorm.DB
	auditService *AuditService
	resolver     *hierarchy.Resolver
}

// NewTeamService constructs a TeamService.
func NewTeamService(db *gorm.DB, auditService *AuditService) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	if auditService == nil {
		return nil, errors.New("team service: audit service is required")
	}
	resolver, err := hierarchy.NewResolver(db)
	if err != nil {
		return nil, err
	}
	return &TeamService{
		db:           db,
		auditService: auditService,
		resolver:     resolver,
	}, nil
}

// CreateTeamInput carries the fields for a new team.
type CreateTeamInput struct {
	Name        string
	Description string
	Type        models.TeamType
	ParentID    *string
	CreatedBy   string
	// AttachCreator adds the creating user as the first member.
	AttachCreator bool
}

// UpdateTeamInput carries the mutable fields of an existing team. Nil
// pointers leave the current value untouched.
type UpdateTeamInput struct {
	Name        *string
	Description *string
	Type        *models.TeamType
	IsActive    *bool
}

// Create persists a new team under the requested parent. When no parent is
// given the team is anchored under the creator's sole team, if any. The level
// is derived from the parent on save.
func (s *TeamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError("name", "team name is required")
	}

	teamType := input.Type
	if teamType == "" {
		teamType = models.TeamTypeTeam
	}
	if !teamType.Valid() {
		return nil, newValidationError("type", "unknown team type %q", string(input.Type))
	}

	createdBy := strings.TrimSpace(input.CreatedBy)

	parentID := input.ParentID
	if parentID == nil && createdBy != "" {
		anchor, err := s.creatorAnchorTeam(ctx, createdBy)
		if err != nil {
			return nil, err
		}
		parentID = anchor
	}
	if parentID != nil {
		if err := s.resolver.ValidateParent(ctx, "", parentID); err != nil {
			return nil, err
		}
	}

	team := &models.Team{
		Name:        name,
		Slug:        slugify(name),
		Description: strings.TrimSpace(input.Description),
		Type:        teamType,
		ParentID:    parentID,
		IsActive:    true,
	}
	if createdBy != "" {
		team.CreatedBy = &createdBy
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			if isUniqueConstraintError(err) {
				return newValidationError("name", "a team named %q already exists", name)
			}
			return fmt.Errorf("create team: %w", err)
		}
		if input.AttachCreator && createdBy != "" {
			if err := attachMember(tx, team.ID, createdBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		UserID:   team.CreatedBy,
		Action:   "team.create",
		Resource: "team:" + team.ID,
		Result:   "success",
	})
	return team, nil
}

// Update applies field changes that do not move the team within the tree.
func (s *TeamService) Update(ctx context.Context, id string, input UpdateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, newValidationError("name", "team name is required")
		}
		team.Name = name
		team.Slug = slugify(name)
	}
	if input.Description != nil {
		team.Description = strings.TrimSpace(*input.Description)
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, newValidationError("type", "unknown team type %q", string(*input.Type))
		}
		team.Type = *input.Type
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}

	if err := s.db.WithContext(ctx).Save(team).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, newValidationError("name", "a team named %q already exists", team.Name)
		}
		return nil, fmt.Errorf("update team: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.update",
		Resource: "team:" + team.ID,
		Result:   "success",
	})
	return team, nil
}

// Move reparents a team. The resolver rejects self-parenting and moves under
// a descendant; the save hook recomputes the level.
func (s *TeamService) Move(ctx context.Context, id string, newParentID *string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.resolver.ValidateParent(ctx, team.ID, newParentID); err != nil {
		return nil, err
	}

	team.ParentID = newParentID
	if err := s.db.WithContext(ctx).Save(team).Error; err != nil {
		return nil, fmt.Errorf("move team: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.move",
		Resource: "team:" + team.ID,
		Result:   "success",
	})
	return team, nil
}

// Delete removes a team. Child teams are detached to root by the foreign key;
// the team's number ranges are removed with it.
func (s *TeamService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	team, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(team).Error; err != nil {
		return fmt.Errorf("delete team: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.delete",
		Resource: "team:" + id,
		Result:   "success",
	})
	return nil
}

// GetByID loads one team.
func (s *TeamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).First(&team, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}
	return &team, nil
}

// List returns the teams visible to the requester: all teams for root users
// and holders of global team management, otherwise the requester's teams plus
// every team underneath them.
func (s *TeamService) List(ctx context.Context, requester *models.User, includeAll bool) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Team{}).Order("level ASC, name ASC")

	if requester == nil || requester.IsRoot || includeAll {
		var teams []models.Team
		if err := query.Find(&teams).Error; err != nil {
			return nil, fmt.Errorf("list teams: %w", err)
		}
		return teams, nil
	}

	memberIDs, err := s.memberTeamIDs(ctx, requester.ID)
	if err != nil {
		return nil, err
	}

	visible := make(map[string]struct{}, len(memberIDs))
	for _, teamID := range memberIDs {
		descendants, err := s.resolver.Descendants(ctx, teamID)
		if err != nil {
			return nil, err
		}
		visible[teamID] = struct{}{}
		for _, id := range descendants {
			visible[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(visible))
	for id := range visible {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []models.Team{}, nil
	}

	var teams []models.Team
	if err := query.Where("id IN ?", ids).Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// DescendantTeamIDs returns every team underneath the given team, the team
// itself excluded.
func (s *TeamService) DescendantTeamIDs(ctx context.Context, teamID string) ([]string, error) {
	return s.resolver.Descendants(ensureContext(ctx), teamID)
}

// Ancestors returns the parent chain from nearest to root.
func (s *TeamService) Ancestors(ctx context.Context, teamID string) ([]models.Team, error) {
	return s.resolver.Ancestors(ensureContext(ctx), teamID)
}

// AddMember puts a user into a team.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	if _, err := s.GetByID(ctx, teamID); err != nil {
		return err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	members, err := s.memberTeamIDs(ctx, userID)
	if err != nil {
		return err
	}
	if containsString(members, teamID) {
		return ErrTeamMemberAlreadyExists
	}

	if err := attachMember(s.db.WithContext(ctx), teamID, userID); err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.member.add",
		Resource: "team:" + teamID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

// RemoveMember takes a user out of a team.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Exec("DELETE FROM team_user WHERE team_id = ? AND user_id = ?", teamID, userID)
	if result.Error != nil {
		return fmt.Errorf("remove team member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTeamMemberNotFound
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "team.member.remove",
		Resource: "team:" + teamID,
		Result:   "success",
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

// ListMembers returns the users belonging to a team.
func (s *TeamService) ListMembers(ctx context.Context, teamID string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Model(team).
		Order("username ASC").
		Association("Users").
		Find(&users); err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return users, nil
}

// creatorAnchorTeam picks a default parent for a team created without an
// explicit one. Non-root users belonging to exactly one team get that team as
// parent; everyone else creates a root team.
func (s *TeamService) creatorAnchorTeam(ctx context.Context, userID string) (*string, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load creator: %w", err)
	}
	if user.IsRoot {
		return nil, nil
	}

	memberIDs, err := s.memberTeamIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberIDs) != 1 {
		return nil, nil
	}
	return &memberIDs[0], nil
}

func (s *TeamService) memberTeamIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).
		Table("team_user").
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("load team memberships: %w", err)
	}
	return ids, nil
}

func attachMember(tx *gorm.DB, teamID, userID string) error {
	if err := tx.Exec(
		"INSERT INTO team_user (team_id, user_id) VALUES (?, ?)", teamID, userID,
	).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrTeamMemberAlreadyExists
		}
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}
