package reel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
)

var (
	ErrNotFound         = errors.New("reel not found")
	ErrInvalidReference = errors.New("referenced product or restaurant does not exist")
)

type Repository interface {
	List(ctx context.Context, filter Filter) ([]Reel, error)
	ListSaved(ctx context.Context, userID uuid.UUID) ([]Reel, error)
	Get(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*Reel, error)
	Create(ctx context.Context, reel *Reel) error
	Update(ctx context.Context, reel *Reel) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	ToggleSave(ctx context.Context, userID, reelID uuid.UUID) (SaveStatus, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// $1 - зритель; для анонима uuid.Nil, такой строки в saved_reels нет.
const reelSelect = `
	SELECT rl.id, rl.product_id, rl.restaurant_id, rl.video, rl.caption, rl.views, rl.is_highlight, rl.created_at,
		EXISTS (SELECT 1 FROM saved_reels s WHERE s.reel_id = rl.id AND s.user_id = $1) AS is_saved,
		r.id, r.name, r.logo, r.location, r.is_verified, r.discount_percentage
	FROM reels rl
	LEFT JOIN restaurants r ON r.id = rl.restaurant_id
`

const reelOrder = ` ORDER BY rl.is_highlight DESC, rl.created_at DESC`

func scanReel(row pgx.Row) (*Reel, error) {
	var (
		rl           Reel
		restID       *uuid.UUID
		restName     *string
		restLogo     *string
		restLocation *string
		restVerified *bool
		restDiscount *int
	)
	err := row.Scan(
		&rl.ID,
		&rl.ProductID,
		&rl.RestaurantID,
		&rl.Video,
		&rl.Caption,
		&rl.Views,
		&rl.IsHighlight,
		&rl.CreatedAt,
		&rl.IsSaved,
		&restID,
		&restName,
		&restLogo,
		&restLocation,
		&restVerified,
		&restDiscount,
	)
	if err != nil {
		return nil, err
	}
	if restID != nil {
		rl.Restaurant = &catalog.Restaurant{
			ID:                 *restID,
			Name:               deref(restName),
			Logo:               deref(restLogo),
			Location:           deref(restLocation),
			IsVerified:         deref(restVerified),
			DiscountPercentage: deref(restDiscount),
		}
	}
	return &rl, nil
}

func (r *postgresRepository) query(ctx context.Context, sql string, args ...any) ([]Reel, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query reels: %w", err)
	}
	defer rows.Close()

	reels := make([]Reel, 0)
	for rows.Next() {
		rl, err := scanReel(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan reel: %w", err)
		}
		reels = append(reels, *rl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating reels: %w", err)
	}
	return reels, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Reel, error) {
	if filter.RestaurantID != nil {
		return r.query(ctx, reelSelect+` WHERE rl.restaurant_id = $2`+reelOrder, filter.Viewer, *filter.RestaurantID)
	}
	return r.query(ctx, reelSelect+reelOrder, filter.Viewer)
}

func (r *postgresRepository) ListSaved(ctx context.Context, userID uuid.UUID) ([]Reel, error) {
	sql := reelSelect + `
		JOIN saved_reels sr ON sr.reel_id = rl.id AND sr.user_id = $1
		ORDER BY sr.saved_at DESC
	`
	return r.query(ctx, sql, userID)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID, viewer uuid.UUID) (*Reel, error) {
	rl, err := scanReel(r.db.QueryRow(ctx, reelSelect+` WHERE rl.id = $2`, viewer, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select reel %s: %w", id, err)
	}
	return rl, nil
}

func (r *postgresRepository) Create(ctx context.Context, reel *Reel) error {
	if reel.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate reel ID: %w", err)
		}
		reel.ID = id
	}
	reel.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO reels (id, product_id, restaurant_id, video, caption, views, is_highlight, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		reel.ID,
		reel.ProductID,
		reel.RestaurantID,
		reel.Video,
		reel.Caption,
		reel.IsHighlight,
		reel.CreatedAt,
	)
	if err != nil {
		return mapWriteError("insert reel", err)
	}
	reel.Views = 0
	return nil
}

// Update не трогает views: счетчик меняется только через IncrementViews.
func (r *postgresRepository) Update(ctx context.Context, reel *Reel) error {
	query := `
		UPDATE reels
		SET product_id = $2, restaurant_id = $3, video = $4, caption = $5, is_highlight = $6
		WHERE id = $1
		RETURNING views, created_at
	`
	err := r.db.QueryRow(ctx, query,
		reel.ID,
		reel.ProductID,
		reel.RestaurantID,
		reel.Video,
		reel.Caption,
		reel.IsHighlight,
	).Scan(&reel.Views, &reel.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError("update reel", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM reels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete reel %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews - один атомарный UPDATE, параллельные просмотры не теряются.
func (r *postgresRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	var views int64
	err := r.db.QueryRow(ctx, `UPDATE reels SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("repository: failed to increment views for reel %s: %w", id, err)
	}
	return views, nil
}

// ToggleSave удаляет сохранение, если оно есть, иначе создает.
// Параллельная вставка той же пары упирается в UNIQUE и считается сохранением.
func (r *postgresRepository) ToggleSave(ctx context.Context, userID, reelID uuid.UUID) (SaveStatus, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM saved_reels WHERE user_id = $1 AND reel_id = $2`, userID, reelID)
	if err != nil {
		return "", fmt.Errorf("repository: failed to delete saved reel: %w", err)
	}
	if cmdTag.RowsAffected() > 0 {
		return StatusUnsaved, nil
	}

	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("repository: failed to generate saved reel ID: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO saved_reels (id, user_id, reel_id, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT saved_reels_user_reel_key DO NOTHING
	`, id, userID, reelID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("repository: failed to insert saved reel: %w", err)
	}
	return StatusSaved, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return ErrInvalidReference
	}
	return fmt.Errorf("repository: failed to %s: %w", op, err)
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
