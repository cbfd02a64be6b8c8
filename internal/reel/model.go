package reel

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/catalog"
)

type Reel struct {
	ID           uuid.UUID           `json:"id" db:"id"`
	ProductID    uuid.UUID           `json:"product" db:"product_id"`
	Product      *catalog.Product    `json:"product_details" db:"-"`
	RestaurantID *uuid.UUID          `json:"restaurant" db:"restaurant_id"`
	Restaurant   *catalog.Restaurant `json:"restaurant_data" db:"-"`
	Video        string              `json:"video" db:"video"`
	Caption      string              `json:"caption" db:"caption"`
	Views        int64               `json:"views" db:"views"`
	IsHighlight  bool                `json:"is_highlight" db:"is_highlight"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	IsSaved      bool                `json:"is_saved" db:"-"` // для текущего пользователя
}

type Filter struct {
	RestaurantID *uuid.UUID
	// Viewer - пользователь, для которого считается is_saved. uuid.Nil для анонимов.
	Viewer uuid.UUID
}

type SaveStatus string

const (
	StatusSaved   SaveStatus = "saved"
	StatusUnsaved SaveStatus = "unsaved"
)
