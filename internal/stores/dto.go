package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/pkg/db/models"
)

// CreateStoreDTO carries the fields captured at registration.
type CreateStoreDTO struct {
	Name    string
	TaxID   string
	Address string
	Phone   string
}

// StoreDTO is the response view of a store.
type StoreDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"cnpj"`
	Address   string    `json:"endereco"`
	Phone     *string   `json:"telefone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c CreateStoreDTO) ToModel() *models.Store {
	m := &models.Store{
		Name:    c.Name,
		TaxID:   c.TaxID,
		Address: c.Address,
	}
	if c.Phone != "" {
		phone := c.Phone
		m.Phone = &phone
	}
	return m
}

func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:        m.ID,
		Name:      m.Name,
		TaxID:     m.TaxID,
		Address:   m.Address,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
	}
}
