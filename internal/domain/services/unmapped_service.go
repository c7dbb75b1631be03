package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ak/cafeinv/internal/domain/models"
	"github.com/ak/cafeinv/internal/domain/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnmappedService manages the queue of names imports could not map
type UnmappedService interface {
	List(ctx context.Context, filter repositories.UnmappedFilter) ([]*models.UnmappedItem, int64, error)
	Resolve(ctx context.Context, id primitive.ObjectID, req ResolveUnmappedRequest) (*models.UnmappedItem, error)
	Ignore(ctx context.Context, id primitive.ObjectID, note string) (*models.UnmappedItem, error)
}

type ResolveUnmappedRequest struct {
	TargetID primitive.ObjectID `json:"target_id" binding:"required"`
	Note     string             `json:"note"`
}

type unmappedService struct {
	repos *repositories.Provider
}

// NewUnmappedService creates a new unmapped item service
func NewUnmappedService(repos *repositories.Provider) UnmappedService {
	return &unmappedService{repos: repos}
}

func (s *unmappedService) List(ctx context.Context, filter repositories.UnmappedFilter) ([]*models.UnmappedItem, int64, error) {
	return s.repos.Unmapped.List(ctx, filter)
}

// Resolve links an item to the product, ingredient or modifier it should
// have matched. The target must exist and match the item's type.
func (s *unmappedService) Resolve(ctx context.Context, id primitive.ObjectID, req ResolveUnmappedRequest) (*models.UnmappedItem, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Resolved {
		return nil, ErrAlreadyResolved
	}

	exists, err := s.targetExists(ctx, item.ItemType, req.TargetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidTarget, item.ItemType, req.TargetID.Hex())
	}

	now := time.Now()
	target := req.TargetID
	item.Resolved = true
	item.Ignored = false
	item.ResolvedTo = &target
	item.ResolvedAt = &now
	if req.Note != "" {
		item.Note = req.Note
	}
	if err := s.repos.Unmapped.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update unmapped item: %w", err)
	}
	return item, nil
}

func (s *unmappedService) Ignore(ctx context.Context, id primitive.ObjectID, note string) (*models.UnmappedItem, error) {
	item, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Ignored = true
	if note != "" {
		item.Note = note
	}
	if err := s.repos.Unmapped.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update unmapped item: %w", err)
	}
	return item, nil
}

func (s *unmappedService) get(ctx context.Context, id primitive.ObjectID) (*models.UnmappedItem, error) {
	item, err := s.repos.Unmapped.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("unmapped item %s: %w", id.Hex(), ErrNotFound)
	}
	return item, nil
}

func (s *unmappedService) targetExists(ctx context.Context, itemType models.UnmappedItemType, id primitive.ObjectID) (bool, error) {
	switch itemType {
	case models.UnmappedProduct:
		p, err := s.repos.Product.GetByID(ctx, id)
		return p != nil, err
	case models.UnmappedIngredient:
		ing, err := s.repos.Ingredient.GetByID(ctx, id)
		return ing != nil, err
	case models.UnmappedModifier:
		m, err := s.repos.Modifier.GetByID(ctx, id)
		return m != nil, err
	}
	return false, nil
}
