package mappers

import (
	"github.com/bilim-app/bilim/internal/domain/user"
	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
)

func UserToModel(u *user.User) *models.UserModel {
	return &models.UserModel{
		ID:        u.ID(),
		Email:     u.Email(),
		Phone:     u.Phone(),
		Name:      u.Name(),
		IsActive:  u.IsActive(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func UserToDomain(model *models.UserModel) *user.User {
	return user.ReconstructUser(user.UserReconstructParams{
		ID:        model.ID,
		Email:     model.Email,
		Phone:     model.Phone,
		Name:      model.Name,
		IsActive:  model.IsActive,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	})
}
