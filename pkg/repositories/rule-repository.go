package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jsndz/notifyengine/pkg/models"
	"gorm.io/gorm"
)

// RuleRepository manages operator-configured rules (spec.md §4.2).
// Adapted from the teacher's pkg/repositories/policy-repository.go.
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *RuleRepository) Update(ctx context.Context, rule *models.Rule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *RuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Rule{}, "id = ?", id).Error
}

func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rule, error) {
	var rule models.Rule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindByName backs the CRUD surface's name-collision check (spec.md §6:
// 409 on name collision). Returns (nil, nil) when no rule has that name.
func (r *RuleRepository) FindByName(ctx context.Context, name string) (*models.Rule, error) {
	var rule models.Rule
	err := r.db.WithContext(ctx).First(&rule, "rule_name = ?", name).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListAll returns every rule regardless of is_active, the shape the
// admin-facing list endpoint serves (spec.md §6).
func (r *RuleRepository) ListAll(ctx context.Context) ([]models.Rule, error) {
	var rules []models.Rule
	if err := r.db.WithContext(ctx).Order("priority_order asc").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActive returns all active rules ordered by priority, the shape
// the rules cache loads on refresh (spec.md §4.2, §9 DESIGN NOTES).
func (r *RuleRepository) ListActive(ctx context.Context) ([]models.Rule, error) {
	var rules []models.Rule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority_order asc").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
