package products

import (
	"context"
	"fmt"

	"github.com/quickcart-labs/quickcart-backend/pkg/db/models"
)

type resolver interface {
	Resolve(ctx context.Context, ref string) (*models.Product, error)
}

// Service exposes catalog lookups to the HTTP layer.
type Service interface {
	Get(ctx context.Context, ref string) (*ProductDTO, error)
}

type service struct {
	repo resolver
}

func NewService(repo resolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, ref string) (*ProductDTO, error) {
	product, err := s.repo.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}
