package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/bilim-app/bilim/internal/domain/user"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/mappers"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
	"github.com/bilim-app/bilim/internal/shared/db"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	model := mappers.UserToModel(u)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.SetID(model.ID)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*user.User, error) {
	var model models.UserModel

	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return mappers.UserToDomain(&model), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model models.UserModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("email = ?", email).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mappers.UserToDomain(&model), nil
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*user.User, error) {
	var model models.UserModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("phone = ?", phone).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return mappers.UserToDomain(&model), nil
}
