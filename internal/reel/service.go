package reel

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
)

// ProductLookup подгружает product_details для ленты.
type ProductLookup interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error)
}

type Service interface {
	ListReels(ctx context.Context, filter Filter) ([]Reel, error)
	ListSaved(ctx context.Context, userID uuid.UUID) ([]Reel, error)
	GetReel(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*Reel, error)
	CreateReel(ctx context.Context, reel *Reel) (*Reel, error)
	UpdateReel(ctx context.Context, reel *Reel) (*Reel, error)
	DeleteReel(ctx context.Context, id uuid.UUID) error
	RecordView(ctx context.Context, id uuid.UUID) (int64, error)
	ToggleSave(ctx context.Context, userID, reelID uuid.UUID) (SaveStatus, error)
}

type service struct {
	repo     Repository
	products ProductLookup
	metrics  *metrics.Metrics
}

func NewService(repo Repository, products ProductLookup, m *metrics.Metrics) Service {
	return &service{repo: repo, products: products, metrics: m}
}

func (s *service) attachProducts(ctx context.Context, reels []Reel) error {
	if len(reels) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]struct{}, len(reels))
	ids := make([]uuid.UUID, 0, len(reels))
	for _, rl := range reels {
		if _, ok := seen[rl.ProductID]; !ok {
			seen[rl.ProductID] = struct{}{}
			ids = append(ids, rl.ProductID)
		}
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load reel products: %w", err)
	}
	for i := range reels {
		reels[i].Product = products[reels[i].ProductID]
	}
	return nil
}

func (s *service) ListReels(ctx context.Context, filter Filter) ([]Reel, error) {
	reels, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list reels")
		return nil, fmt.Errorf("service: failed to list reels: %w", err)
	}
	if err := s.attachProducts(ctx, reels); err != nil {
		log.Error().Err(err).Msg("service: failed to attach products to reels")
		return nil, err
	}
	return reels, nil
}

func (s *service) ListSaved(ctx context.Context, userID uuid.UUID) ([]Reel, error) {
	reels, err := s.repo.ListSaved(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to list saved reels")
		return nil, fmt.Errorf("service: failed to list saved reels: %w", err)
	}
	if err := s.attachProducts(ctx, reels); err != nil {
		return nil, err
	}
	return reels, nil
}

func (s *service) GetReel(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*Reel, error) {
	rl, err := s.repo.Get(ctx, id, viewer)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("reel_id", id).Msg("service: failed to get reel")
		return nil, fmt.Errorf("service: failed to get reel: %w", err)
	}

	one := []Reel{*rl}
	if err := s.attachProducts(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (s *service) CreateReel(ctx context.Context, reel *Reel) (*Reel, error) {
	reel.ID = uuid.Nil
	if err := s.repo.Create(ctx, reel); err != nil {
		if errors.Is(err, ErrInvalidReference) {
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create reel")
		return nil, fmt.Errorf("service: failed to create reel: %w", err)
	}
	log.Info().Stringer("reel_id", reel.ID).Msg("service: reel created")
	return s.GetReel(ctx, reel.ID, uuid.Nil)
}

func (s *service) UpdateReel(ctx context.Context, reel *Reel) (*Reel, error) {
	if err := s.repo.Update(ctx, reel); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidReference) {
			return nil, err
		}
		log.Error().Err(err).Stringer("reel_id", reel.ID).Msg("service: failed to update reel")
		return nil, fmt.Errorf("service: failed to update reel: %w", err)
	}
	return s.GetReel(ctx, reel.ID, uuid.Nil)
}

func (s *service) DeleteReel(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("reel_id", id).Msg("service: failed to delete reel")
		return fmt.Errorf("service: failed to delete reel: %w", err)
	}
	return nil
}

func (s *service) RecordView(ctx context.Context, id uuid.UUID) (int64, error) {
	views, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		log.Error().Err(err).Stringer("reel_id", id).Msg("service: failed to record reel view")
		return 0, fmt.Errorf("service: failed to record view: %w", err)
	}
	s.metrics.ReelViews.Inc()
	return views, nil
}

func (s *service) ToggleSave(ctx context.Context, userID, reelID uuid.UUID) (SaveStatus, error) {
	status, err := s.repo.ToggleSave(ctx, userID, reelID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		log.Error().Err(err).Stringer("reel_id", reelID).Stringer("user_id", userID).Msg("service: failed to toggle saved reel")
		return "", fmt.Errorf("service: failed to toggle save: %w", err)
	}
	return status, nil
}
