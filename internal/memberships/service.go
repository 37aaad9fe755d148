package memberships

import (
	"context"

	"github.com/google/uuid"

	"github.com/lojafacil/lojas-backend/pkg/logger"
)

type linkStore interface {
	Exists(ctx context.Context, userID, storeID uuid.UUID) (bool, error)
	Link(ctx context.Context, userID, storeID uuid.UUID) (bool, error)
}

// Linker connects a user to a store, tolerating repeated calls.
type Linker struct {
	repo linkStore
	logg *logger.Logger
}

func NewLinker(repo linkStore, logg *logger.Logger) *Linker {
	return &Linker{repo: repo, logg: logg}
}

// Link returns true when a new link was written.
func (l *Linker) Link(ctx context.Context, userID, storeID uuid.UUID) (bool, error) {
	exists, err := l.repo.Exists(ctx, userID, storeID)
	if err != nil {
		return false, err
	}
	if !exists {
		created, err := l.repo.Link(ctx, userID, storeID)
		if err != nil {
			return false, err
		}
		if created {
			return true, nil
		}
	}
	if l.logg != nil {
		logCtx := l.logg.WithStoreID(l.logg.WithUserID(ctx, userID.String()), storeID.String())
		l.logg.Warn(logCtx, "accounts.link.exists")
	}
	return false, nil
}
