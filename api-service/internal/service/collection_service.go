package service

import (
	"context"
	"encoding/json"
	"strings"

	"game-library-server/shared/interfaces"
	"game-library-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCollectionInput carries the payload of POST /libraries/{id}/collections.
type CreateCollectionInput struct {
	Name        string          `json:"name" binding:"required"`
	Description *string         `json:"description"`
	Color       *string         `json:"color"`
	Icon        *string         `json:"icon"`
	IsSmart     bool            `json:"is_smart"`
	Rules       json.RawMessage `json:"rules"`
}

// UpdateCollectionInput carries the payload of PATCH /collections/{id}.
type UpdateCollectionInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
}

// CollectionService manages user collections within a library.
type CollectionService interface {
	Create(ctx context.Context, libraryID uuid.UUID, input CreateCollectionInput) (*models.GameCollection, error)
	ListByLibrary(ctx context.Context, libraryID uuid.UUID) ([]models.GameCollection, error)
	Get(ctx context.Context, id uuid.UUID) (*models.GameCollection, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCollectionInput) (*models.GameCollection, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddGame(ctx context.Context, collectionID, gameID uuid.UUID) error
	RemoveGame(ctx context.Context, collectionID, gameID uuid.UUID) error
	ListGames(ctx context.Context, collectionID uuid.UUID) ([]models.Game, error)
}

type collectionService struct {
	collections interfaces.CollectionRepository
	libraries   interfaces.LibraryRepository
	logger      *zap.Logger
}

// Compile-time check
var _ CollectionService = (*collectionService)(nil)

// NewCollectionService creates a CollectionService.
func NewCollectionService(collections interfaces.CollectionRepository, libraries interfaces.LibraryRepository, logger *zap.Logger) CollectionService {
	return &collectionService{
		collections: collections,
		libraries:   libraries,
		logger:      logger.Named("CollectionService"),
	}
}

func (s *collectionService) Create(ctx context.Context, libraryID uuid.UUID, input CreateCollectionInput) (*models.GameCollection, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Fields: map[string]string{"name": "must not be empty"}}
	}
	if input.IsSmart && len(input.Rules) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"rules": "required for smart collections"}}
	}

	if _, err := s.libraries.GetByID(ctx, libraryID); err != nil {
		return nil, err
	}

	coll := &models.GameCollection{
		ID:          uuid.New(),
		LibraryID:   libraryID,
		Name:        name,
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		IsSmart:     input.IsSmart,
		Rules:       input.Rules,
	}
	if err := s.collections.Create(ctx, coll); err != nil {
		return nil, err
	}

	s.logger.Info("Collection created",
		zap.String("collectionID", coll.ID.String()),
		zap.String("libraryID", libraryID.String()))
	return s.collections.GetByID(ctx, coll.ID)
}

func (s *collectionService) ListByLibrary(ctx context.Context, libraryID uuid.UUID) ([]models.GameCollection, error) {
	if _, err := s.libraries.GetByID(ctx, libraryID); err != nil {
		return nil, err
	}
	return s.collections.ListByLibrary(ctx, libraryID)
}

func (s *collectionService) Get(ctx context.Context, id uuid.UUID) (*models.GameCollection, error) {
	return s.collections.GetByID(ctx, id)
}

func (s *collectionService) Update(ctx context.Context, id uuid.UUID, input UpdateCollectionInput) (*models.GameCollection, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, &ValidationError{Fields: map[string]string{"name": "must not be empty"}}
		}
		input.Name = &trimmed
	}
	if err := s.collections.Update(ctx, id, input.Name, input.Description, input.Color, input.Icon); err != nil {
		return nil, err
	}
	return s.collections.GetByID(ctx, id)
}

func (s *collectionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.collections.Delete(ctx, id)
}

func (s *collectionService) AddGame(ctx context.Context, collectionID, gameID uuid.UUID) error {
	if _, err := s.collections.GetByID(ctx, collectionID); err != nil {
		return err
	}
	return s.collections.AddGame(ctx, collectionID, gameID)
}

func (s *collectionService) RemoveGame(ctx context.Context, collectionID, gameID uuid.UUID) error {
	if _, err := s.collections.GetByID(ctx, collectionID); err != nil {
		return err
	}
	return s.collections.RemoveGame(ctx, collectionID, gameID)
}

func (s *collectionService) ListGames(ctx context.Context, collectionID uuid.UUID) ([]models.Game, error) {
	if _, err := s.collections.GetByID(ctx, collectionID); err != nil {
		return nil, err
	}
	return s.collections.ListGames(ctx, collectionID)
}
