package domain

// CartLine is one entry in a cart, keyed by (Kind, ItemID). The cart
// stores references only; names and prices are resolved from the
// catalog at read time.
type CartLine struct {
	ItemID   string      `json:"item_id"`
	Kind     CatalogKind `json:"kind"`
	Quantity int         `json:"quantity"`
}

// Cart is the raw per-user cart as persisted.
type Cart struct {
	UserID string     `json:"user_id"`
	Lines  []CartLine `json:"lines"`
}

// FindLineIndex returns the index of the line matching kind and itemID,
// or -1 when absent.
func (c *Cart) FindLineIndex(kind CatalogKind, itemID string) int {
	for i := range c.Lines {
		if c.Lines[i].Kind == kind && c.Lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// ResolvedLine is a cart line joined with its current catalog record.
type ResolvedLine struct {
	Item     CatalogItem `json:"item"`
	Quantity int         `json:"quantity"`
}

// ResolvedCart is the presentation shape of a cart. Items is never nil
// so an empty cart renders as {"items": []}.
type ResolvedCart struct {
	Items []ResolvedLine `json:"items"`
}

// TotalCents returns the cart total at current catalog prices.
func (c *ResolvedCart) TotalCents() int64 {
	var total int64
	for _, line := range c.Items {
		total += line.Item.PriceCents * int64(line.Quantity)
	}
	return total
}
