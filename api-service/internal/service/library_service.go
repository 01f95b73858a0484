package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateLibraryInput carries the payload of POST /libraries.
type CreateLibraryInput struct {
	PlatformID     uuid.UUID       `json:"platform_id" binding:"required"`
	UserIdentifier string          `json:"user_identifier" binding:"required"`
	DisplayName    string          `json:"display_name"`
	Credentials    json.RawMessage `json:"credentials"`
}

// UpdateLibraryInput carries the payload of PATCH /libraries/{id}. Nil
// fields stay unchanged.
type UpdateLibraryInput struct {
	DisplayName *string         `json:"display_name"`
	SyncEnabled *bool           `json:"sync_enabled"`
	Credentials json.RawMessage `json:"credentials"`
}

// LibraryService manages user platform libraries.
type LibraryService interface {
	Create(ctx context.Context, input CreateLibraryInput) (*models.UserLibrary, error)
	List(ctx context.Context, page, limit int) ([]models.UserLibrary, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.UserLibrary, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateLibraryInput) (*models.UserLibrary, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, id uuid.UUID) (*models.LibraryStats, error)
}

type libraryService struct {
	libraries interfaces.LibraryRepository
	platforms interfaces.PlatformRepository
	logger    *zap.Logger
}

// Compile-time check
var _ LibraryService = (*libraryService)(nil)

// NewLibraryService creates a LibraryService.
func NewLibraryService(libraries interfaces.LibraryRepository, platforms interfaces.PlatformRepository, logger *zap.Logger) LibraryService {
	return &libraryService{
		libraries: libraries,
		platforms: platforms,
		logger:    logger.Named("LibraryService"),
	}
}

func (s *libraryService) Create(ctx context.Context, input CreateLibraryInput) (*models.UserLibrary, error) {
	identifier := strings.TrimSpace(input.UserIdentifier)
	if identifier == "" {
		return nil, &ValidationError{Fields: map[string]string{
			"user_identifier": "must not be empty",
		}}
	}

	platform, err := s.platforms.GetByID(ctx, input.PlatformID)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = fmt.Sprintf("%s library", platform.Name)
	}

	lib := &models.UserLibrary{
		ID:             uuid.New(),
		PlatformID:     platform.ID,
		UserIdentifier: identifier,
		DisplayName:    displayName,
		Credentials:    input.Credentials,
		SyncEnabled:    true,
		SyncStatus:     models.SyncStatusPending,
		PlatformCode:   platform.Code,
	}
	if err := s.libraries.Create(ctx, lib); err != nil {
		return nil, err
	}

	s.logger.Info("Library created",
		zap.String("libraryID", lib.ID.String()),
		zap.String("platform", platform.Code))
	return s.libraries.GetByID(ctx, lib.ID)
}

func (s *libraryService) List(ctx context.Context, page, limit int) ([]models.UserLibrary, int64, error) {
	offset := (page - 1) * limit
	return s.libraries.List(ctx, limit, offset)
}

func (s *libraryService) Get(ctx context.Context, id uuid.UUID) (*models.UserLibrary, error) {
	return s.libraries.GetByID(ctx, id)
}

func (s *libraryService) Update(ctx context.Context, id uuid.UUID, input UpdateLibraryInput) (*models.UserLibrary, error) {
	if err := s.libraries.Update(ctx, id, input.DisplayName, input.SyncEnabled, input.Credentials); err != nil {
		return nil, err
	}
	return s.libraries.GetByID(ctx, id)
}

func (s *libraryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.libraries.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Library deleted", zap.String("libraryID", id.String()))
	return nil
}

func (s *libraryService) Stats(ctx context.Context, id uuid.UUID) (*models.LibraryStats, error) {
	stats, err := s.libraries.Stats(ctx, id)
	if err != nil {
		return nil, err
	}
	if stats.TotalGames > 0 {
		stats.CompletionPercent = float64(stats.CompletedGames) / float64(stats.TotalGames) * 100
	}
	return stats, nil
}

// PlatformService serves the immutable platform catalog.
type PlatformService interface {
	List(ctx context.Context, enabledOnly bool) ([]models.Platform, error)
}

type platformService struct {
	platforms interfaces.PlatformRepository
}

// Compile-time check
var _ PlatformService = (*platformService)(nil)

// NewPlatformService creates a PlatformService.
func NewPlatformService(platforms interfaces.PlatformRepository) PlatformService {
	return &platformService{platforms: platforms}
}

func (s *platformService) List(ctx context.Context, enabledOnly bool) ([]models.Platform, error) {
	all, err := s.platforms.List(ctx)
	if err != nil {
		return nil, err
	}
	if !enabledOnly {
		return all, nil
	}
	enabled := make([]models.Platform, 0, len(all))
	for _, p := range all {
		if p.APIAvailable {
			enabled = append(enabled, p)
		}
	}
	return enabled, nil
}
