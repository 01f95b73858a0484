package interfaces

import (
	"context"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// PlatformRepository defines the interface for platform catalog persistence.
type PlatformRepository interface {
	// List returns every registered platform ordered by name.
	List(ctx context.Context) ([]models.Platform, error)

	// GetByID retrieves a platform by its ID.
	// Returns models.ErrPlatformNotFound if the platform does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Platform, error)

	// GetByCode retrieves a platform by its short code (e.g. "steam").
	// Returns models.ErrPlatformNotFound if the platform does not exist.
	GetByCode(ctx context.Context, code string) (*models.Platform, error)
}
