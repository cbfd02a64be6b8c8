package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Logo               string    `json:"logo" db:"logo"`
	CoverImage         string    `json:"cover_image" db:"cover_image"`
	WhatsAppNumber     string    `json:"whatsapp_number" db:"whatsapp_number"`
	Location           string    `json:"location" db:"location"`
	Description        string    `json:"description" db:"description"`
	DeliveryNote       string    `json:"delivery_note" db:"delivery_note"`
	IsVerified         bool      `json:"is_verified" db:"is_verified"`
	DiscountPercentage int       `json:"discount_percentage" db:"discount_percentage"` // скидка на все товары ресторана
	IsFeaturedCampaign bool      `json:"is_featured_campaign" db:"is_featured_campaign"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

type Category struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Image        string      `json:"image" db:"image"`
	RestaurantID *uuid.UUID  `json:"restaurant" db:"restaurant_id"`
	Restaurant   *Restaurant `json:"restaurant_data,omitempty" db:"-"`
}

type Product struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	Description        string          `json:"description" db:"description"`
	Price              decimal.Decimal `json:"price" db:"price"`
	Image              string          `json:"image" db:"image"`
	CategoryID         uuid.UUID       `json:"category" db:"category_id"`
	RestaurantID       *uuid.UUID      `json:"restaurant" db:"restaurant_id"`
	Rating             float64         `json:"rating" db:"rating"`
	Calories           int             `json:"calories" db:"calories"`
	IsPromoted         bool            `json:"is_promoted" db:"is_promoted"`
	DiscountPercentage int             `json:"discount_percentage" db:"discount_percentage"`
	ShippingFee        decimal.Decimal `json:"shipping_fee" db:"shipping_fee"`
	IsAvailable        bool            `json:"is_available" db:"is_available"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
	Restaurant         *Restaurant     `json:"restaurant_data,omitempty" db:"-"` // заполняется JOIN'ом
}

// RestaurantDiscount returns the parent restaurant's blanket discount, 0 when the
// product has no restaurant.
func (p *Product) RestaurantDiscount() int {
	if p.Restaurant == nil {
		return 0
	}
	return p.Restaurant.DiscountPercentage
}

func (p *Product) EffectiveDiscount() int {
	return EffectiveDiscount(p.IsPromoted, p.DiscountPercentage, p.RestaurantDiscount())
}

func (p *Product) DiscountedPrice() decimal.Decimal {
	return DiscountedPrice(p.Price, p.EffectiveDiscount())
}

type ProductFilter struct {
	CategoryID   *uuid.UUID
	RestaurantID *uuid.UUID
	Search       string
}
