package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lojafacil/lojas-backend/internal/repo"
	"github.com/lojafacil/lojas-backend/pkg/db"
	"github.com/lojafacil/lojas-backend/pkg/db/models"
)

const (
	TaxIDConstraint = "idx_stores_tax_id"
	taxIDColumn     = "stores.tax_id"
)

// Repository persists stores.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) Create(ctx context.Context, dto CreateStoreDTO) (*models.Store, error) {
	store := dto.ToModel()
	if err := r.DB(ctx).Create(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.DB(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// TaxIDTaken reports whether a store with the given CNPJ exists.
func (r *Repository) TaxIDTaken(ctx context.Context, taxID string) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Store{}).Where("tax_id = ?", taxID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListForUser returns every store linked to the user, oldest link first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Store, error) {
	var rows []models.Store
	err := r.DB(ctx).
		Joins("JOIN user_store_links l ON l.store_id = stores.id").
		Where("l.user_id = ?", userID).
		Order("l.linked_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func IsDuplicateTaxID(err error) bool {
	return db.IsUniqueViolation(err, TaxIDConstraint, taxIDColumn)
}
