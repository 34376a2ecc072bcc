package registry

import (
	"context"
	"errors"

	"github.com/modular-ai/core/internal/models"
	"gorm.io/gorm"
)

// Store is the gorm-backed lookup layer for modules, models and pages.
// Finders return (nil, nil) when the record does not exist so callers can
// map absence to their own error codes.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) FindModule(ctx context.Context, id int64) (*models.ModuleModel, error) {
	var m models.ModuleModel
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) FindModel(ctx context.Context, id int64) (*models.ModelModel, error) {
	var m models.ModelModel
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) FindPage(ctx context.Context, id int64) (*models.PageModel, error) {
	var p models.PageModel
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPublicModules returns modules exposed to API key callers.
func (s *Store) ListPublicModules(ctx context.Context) ([]models.ModuleModel, error) {
	var items []models.ModuleModel
	err := s.db.WithContext(ctx).Where("public = ?", true).Order("id ASC").Find(&items).Error
	return items, err
}

// ListActiveModels returns the models currently available for execution.
func (s *Store) ListActiveModels(ctx context.Context) ([]models.ModelModel, error) {
	var items []models.ModelModel
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&items).Error
	return items, err
}

// ModulesUsingModel returns the ids of modules bound to a model. Used to
// scope cache invalidation when a model changes.
func (s *Store) ModulesUsingModel(ctx context.Context, modelID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.ModuleModel{}).
		Where("model_ref = ?", modelID).Pluck("id", &ids).Error
	return ids, err
}
