package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-innovation-api/internal/models"
)

// UserRepository reads programme participants and their role grants.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	// IDsWithRoles returns the distinct users holding at least one of the roles.
	IDsWithRoles(ctx context.Context, roles []string) ([]uint, error)
	Create(ctx context.Context, user *models.User) error
	GrantRoles(ctx context.Context, userID uint, roles ...string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs the user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) IDsWithRoles(ctx context.Context, roles []string) ([]uint, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Distinct("user_id").
		Where("role IN ?", roles).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GrantRoles(ctx context.Context, userID uint, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}
	grants := make([]models.UserRole, 0, len(roles))
	for _, role := range roles {
		grants = append(grants, models.UserRole{UserID: userID, Role: role})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grants).Error
}
