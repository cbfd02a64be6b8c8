package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("referenced category or restaurant does not exist")
)

type Repository interface {
	ListRestaurants(ctx context.Context) ([]Restaurant, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (*Restaurant, error)
	CreateRestaurant(ctx context.Context, restaurant *Restaurant) error
	UpdateRestaurant(ctx context.Context, restaurant *Restaurant) error
	DeleteRestaurant(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context, restaurantID *uuid.UUID) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	CreateCategory(ctx context.Context, category *Category) error
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const restaurantColumns = `id, name, logo, cover_image, whatsapp_number, location, description,
	delivery_note, is_verified, discount_percentage, is_featured_campaign, created_at, updated_at`

func scanRestaurant(row pgx.Row) (*Restaurant, error) {
	var r Restaurant
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Logo,
		&r.CoverImage,
		&r.WhatsAppNumber,
		&r.Location,
		&r.Description,
		&r.DeliveryNote,
		&r.IsVerified,
		&r.DiscountPercentage,
		&r.IsFeaturedCampaign,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *postgresRepository) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	rows, err := r.db.Query(ctx, `SELECT `+restaurantColumns+` FROM restaurants ORDER BY is_featured_campaign DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := make([]Restaurant, 0)
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, *restaurant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating restaurants: %w", err)
	}

	return restaurants, nil
}

func (r *postgresRepository) GetRestaurant(ctx context.Context, id uuid.UUID) (*Restaurant, error) {
	restaurant, err := scanRestaurant(r.db.QueryRow(ctx, `SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select restaurant %s: %w", id, err)
	}
	return restaurant, nil
}

func (r *postgresRepository) CreateRestaurant(ctx context.Context, restaurant *Restaurant) error {
	if restaurant.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate restaurant ID: %w", err)
		}
		restaurant.ID = id
	}
	now := time.Now().UTC()
	restaurant.CreatedAt, restaurant.UpdatedAt = now, now

	query := `
		INSERT INTO restaurants (id, name, logo, cover_image, whatsapp_number, location, description,
			delivery_note, is_verified, discount_percentage, is_featured_campaign, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		restaurant.ID,
		restaurant.Name,
		restaurant.Logo,
		restaurant.CoverImage,
		restaurant.WhatsAppNumber,
		restaurant.Location,
		restaurant.Description,
		restaurant.DeliveryNote,
		restaurant.IsVerified,
		restaurant.DiscountPercentage,
		restaurant.IsFeaturedCampaign,
		restaurant.CreatedAt,
		restaurant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert restaurant: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateRestaurant(ctx context.Context, restaurant *Restaurant) error {
	restaurant.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE restaurants
		SET name = $2, logo = $3, cover_image = $4, whatsapp_number = $5, location = $6,
			description = $7, delivery_note = $8, is_verified = $9, discount_percentage = $10,
			is_featured_campaign = $11, updated_at = $12
		WHERE id = $1
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		restaurant.ID,
		restaurant.Name,
		restaurant.Logo,
		restaurant.CoverImage,
		restaurant.WhatsAppNumber,
		restaurant.Location,
		restaurant.Description,
		restaurant.DeliveryNote,
		restaurant.IsVerified,
		restaurant.DiscountPercentage,
		restaurant.IsFeaturedCampaign,
		restaurant.UpdatedAt,
	).Scan(&restaurant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("repository: failed to update restaurant %s: %w", restaurant.ID, err)
	}
	return nil
}

func (r *postgresRepository) DeleteRestaurant(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "restaurants", id)
}

func (r *postgresRepository) deleteByID(ctx context.Context, table string, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete from %s %s: %w", table, id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const categoryColumns = `c.id, c.name, c.image, c.restaurant_id,
	r.id, r.name, r.discount_percentage`

func scanCategory(row pgx.Row) (*Category, error) {
	var (
		c            Category
		restID       *uuid.UUID
		restName     *string
		restDiscount *int
	)
	err := row.Scan(&c.ID, &c.Name, &c.Image, &c.RestaurantID, &restID, &restName, &restDiscount)
	if err != nil {
		return nil, err
	}
	if restID != nil {
		c.Restaurant = &Restaurant{ID: *restID, Name: deref(restName), DiscountPercentage: deref(restDiscount)}
	}
	return &c, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context, restaurantID *uuid.UUID) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories c LEFT JOIN restaurants r ON r.id = c.restaurant_id`
	args := []any{}
	if restaurantID != nil {
		query += ` WHERE c.restaurant_id = $1`
		args = append(args, *restaurantID)
	}
	query += ` ORDER BY c.name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories c LEFT JOIN restaurants r ON r.id = c.restaurant_id WHERE c.id = $1`
	category, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category %s: %w", id, err)
	}
	return category, nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, category *Category) error {
	if category.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category ID: %w", err)
		}
		category.ID = id
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO categories (id, name, image, restaurant_id) VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Image, category.RestaurantID,
	)
	if err != nil {
		return mapWriteError("insert category", err)
	}
	return nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, category *Category) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE categories SET name = $2, image = $3, restaurant_id = $4 WHERE id = $1`,
		category.ID, category.Name, category.Image, category.RestaurantID,
	)
	if err != nil {
		return mapWriteError("update category", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "categories", id)
}

const productColumns = `p.id, p.name, p.description, p.price, p.image, p.category_id, p.restaurant_id,
	p.rating, p.calories, p.is_promoted, p.discount_percentage, p.shipping_fee, p.is_available,
	p.created_at, p.updated_at,
	r.id, r.name, r.logo, r.location, r.is_verified, r.discount_percentage`

const productFrom = ` FROM products p LEFT JOIN restaurants r ON r.id = p.restaurant_id`

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p            Product
		restID       *uuid.UUID
		restName     *string
		restLogo     *string
		restLocation *string
		restVerified *bool
		restDiscount *int
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Image,
		&p.CategoryID,
		&p.RestaurantID,
		&p.Rating,
		&p.Calories,
		&p.IsPromoted,
		&p.DiscountPercentage,
		&p.ShippingFee,
		&p.IsAvailable,
		&p.CreatedAt,
		&p.UpdatedAt,
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
		p.Restaurant = &Restaurant{
			ID:                 *restID,
			Name:               deref(restName),
			Logo:               deref(restLogo),
			Location:           deref(restLocation),
			IsVerified:         deref(restVerified),
			DiscountPercentage: deref(restDiscount),
		}
	}
	return &p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.RestaurantID != nil {
		args = append(args, *filter.RestaurantID)
		conditions = append(conditions, fmt.Sprintf("p.restaurant_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}

	query := `SELECT ` + productColumns + productFrom
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}
	return product, nil
}

func (r *postgresRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error) {
	products := make(map[uuid.UUID]*Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products[product.ID] = product
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating products by ids: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, product *Product) error {
	if product.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		product.ID = id
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	query := `
		INSERT INTO products (id, name, description, price, image, category_id, restaurant_id, rating,
			calories, is_promoted, discount_percentage, shipping_fee, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.Exec(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Image,
		product.CategoryID,
		product.RestaurantID,
		product.Rating,
		product.Calories,
		product.IsPromoted,
		product.DiscountPercentage,
		product.ShippingFee,
		product.IsAvailable,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("insert product", err)
	}
	return nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, product *Product) error {
	product.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, image = $5, category_id = $6, restaurant_id = $7,
			rating = $8, calories = $9, is_promoted = $10, discount_percentage = $11, shipping_fee = $12,
			is_available = $13, updated_at = $14
		WHERE id = $1
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Image,
		product.CategoryID,
		product.RestaurantID,
		product.Rating,
		product.Calories,
		product.IsPromoted,
		product.DiscountPercentage,
		product.ShippingFee,
		product.IsAvailable,
		product.UpdatedAt,
	).Scan(&product.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError("update product", err)
	}
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "products", id)
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return ErrInvalidReference
	}
	return fmt.Errorf("repository: failed to %s: %w", op, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
