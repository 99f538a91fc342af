package domain

import (
	"fmt"
	"time"
)

// CatalogKind discriminates the two sellable record types. Products and
// shops live in the same table and share cart semantics; the kind keeps
// their ID spaces separate.
type CatalogKind string

const (
	KindProduct CatalogKind = "product"
	KindShop    CatalogKind = "shop"
)

// ParseCatalogKind returns the CatalogKind for s.
func ParseCatalogKind(s string) (CatalogKind, error) {
	switch CatalogKind(s) {
	case KindProduct, KindShop:
		return CatalogKind(s), nil
	}
	return "", fmt.Errorf("unknown catalog kind %q", s)
}

// CatalogItem is a sellable catalog record of either kind.
type CatalogItem struct {
	ID          string      `json:"id"`
	Kind        CatalogKind `json:"kind"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Tag         string      `json:"tag,omitempty"`
	PriceCents  int64       `json:"price_cents"`
	ImageURL    string      `json:"image_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
