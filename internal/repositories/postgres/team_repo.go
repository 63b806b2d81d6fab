package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Youngdong2/ai-meeting-api/internal/models"
	"github.com/Youngdong2/ai-meeting-api/internal/utils"
)

type TeamRepo interface {
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
	GetSetting(ctx context.Context, teamID string) (*models.TeamSetting, error)

	// Resolve implements pipeline.CredentialResolver.
	Resolve(ctx context.Context, teamID string) (string, error)
}

type teamRepo struct {
	db *gorm.DB
}

func NewTeamRepo(db *gorm.DB) TeamRepo {
	return &teamRepo{db: db}
}

func (r *teamRepo) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	var row models.Team
	err := r.db.WithContext(ctx).Where("id = ?", teamID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *teamRepo) GetSetting(ctx context.Context, teamID string) (*models.TeamSetting, error) {
	var row models.TeamSetting
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *teamRepo) Resolve(ctx context.Context, teamID string) (string, error) {
	setting, err := r.GetSetting(ctx, teamID)
	if err != nil {
		return "", err
	}
	if setting.OpenAIAPIKey == "" {
		return "", utils.ErrNotFound
	}
	return setting.OpenAIAPIKey, nil
}
