package memberships

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lojafacil/lojas-backend/internal/repo"
	"github.com/lojafacil/lojas-backend/pkg/db/models"
)

// Repository manages user/store links.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Exists reports whether the pair is already linked.
func (r *Repository) Exists(ctx context.Context, userID, storeID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.UserStoreLink{}).
		Where("user_id = ? AND store_id = ?", userID, storeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Link inserts the pair once. created is false when the link already existed.
func (r *Repository) Link(ctx context.Context, userID, storeID uuid.UUID) (bool, error) {
	link := &models.UserStoreLink{UserID: userID, StoreID: storeID}
	res := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "store_id"}},
			DoNothing: true,
		}).
		Create(link)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// StoreIDsForUser lists the stores a user belongs to.
func (r *Repository) StoreIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.UserStoreLink{}).
		Where("user_id = ?", userID).
		Order("linked_at ASC").
		Pluck("store_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
