package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidDiscount = errors.New("discount percentage must be between 0 and 100")

type Service interface {
	ListRestaurants(ctx context.Context) ([]Restaurant, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (*Restaurant, error)
	CreateRestaurant(ctx context.Context, restaurant *Restaurant) (*Restaurant, error)
	UpdateRestaurant(ctx context.Context, restaurant *Restaurant) (*Restaurant, error)
	DeleteRestaurant(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context, restaurantID *uuid.UUID) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	CreateCategory(ctx context.Context, category *Category) (*Category, error)
	UpdateCategory(ctx context.Context, category *Category) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	UpdateProduct(ctx context.Context, product *Product) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func validDiscount(pct int) bool {
	return pct >= 0 && pct <= 100
}

func (s *service) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	restaurants, err := s.repo.ListRestaurants(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list restaurants")
		return nil, fmt.Errorf("service: failed to list restaurants: %w", err)
	}
	return restaurants, nil
}

func (s *service) GetRestaurant(ctx context.Context, id uuid.UUID) (*Restaurant, error) {
	restaurant, err := s.repo.GetRestaurant(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("restaurant_id", id).Msg("service: failed to get restaurant")
		return nil, fmt.Errorf("service: failed to get restaurant: %w", err)
	}
	return restaurant, nil
}

func (s *service) CreateRestaurant(ctx context.Context, restaurant *Restaurant) (*Restaurant, error) {
	if !validDiscount(restaurant.DiscountPercentage) {
		return nil, ErrInvalidDiscount
	}
	restaurant.ID = uuid.Nil

	if err := s.repo.CreateRestaurant(ctx, restaurant); err != nil {
		log.Error().Err(err).Msg("service: failed to create restaurant")
		return nil, fmt.Errorf("service: failed to create restaurant: %w", err)
	}

	log.Info().Stringer("restaurant_id", restaurant.ID).Str("name", restaurant.Name).Msg("service: restaurant created")
	return restaurant, nil
}

func (s *service) UpdateRestaurant(ctx context.Context, restaurant *Restaurant) (*Restaurant, error) {
	if !validDiscount(restaurant.DiscountPercentage) {
		return nil, ErrInvalidDiscount
	}

	if err := s.repo.UpdateRestaurant(ctx, restaurant); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("restaurant_id", restaurant.ID).Msg("service: failed to update restaurant")
		return nil, fmt.Errorf("service: failed to update restaurant: %w", err)
	}
	return restaurant, nil
}

func (s *service) DeleteRestaurant(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteRestaurant(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("restaurant_id", id).Msg("service: failed to delete restaurant")
		return fmt.Errorf("service: failed to delete restaurant: %w", err)
	}
	return nil
}

func (s *service) ListCategories(ctx context.Context, restaurantID *uuid.UUID) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx, restaurantID)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to get category")
		return nil, fmt.Errorf("service: failed to get category: %w", err)
	}
	return category, nil
}

func (s *service) CreateCategory(ctx context.Context, category *Category) (*Category, error) {
	category.ID = uuid.Nil

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, ErrInvalidReference) {
			return nil, ErrInvalidReference
		}
		log.Error().Err(err).Msg("service: failed to create category")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, category *Category) (*Category, error) {
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidReference) {
			return nil, err
		}
		log.Error().Err(err).Stringer("category_id", category.ID).Msg("service: failed to update category")
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to delete category")
		return fmt.Errorf("service: failed to delete category: %w", err)
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to get product")
		return nil, fmt.Errorf("service: failed to get product: %w", err)
	}
	return product, nil
}

func (s *service) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error) {
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Int("ids", len(ids)).Msg("service: failed to get products by ids")
		return nil, fmt.Errorf("service: failed to get products by ids: %w", err)
	}
	return products, nil
}

func (s *service) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	if !validDiscount(product.DiscountPercentage) {
		return nil, ErrInvalidDiscount
	}
	product.ID = uuid.Nil

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrInvalidReference) {
			return nil, ErrInvalidReference
		}
		log.Error().Err(err).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	// перечитываем, чтобы получить restaurant_data
	created, err := s.GetProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	log.Info().Stringer("product_id", created.ID).Str("name", created.Name).Msg("service: product created")
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, product *Product) (*Product, error) {
	if !validDiscount(product.DiscountPercentage) {
		return nil, ErrInvalidDiscount
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidReference) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", product.ID).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	return s.GetProduct(ctx, product.ID)
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
	return nil
}
