package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("user")
	assert.True(t, ok)
	assert.Equal(t, RoleUser, role)

	role, ok = ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)

	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestIdentity_IsFederated(t *testing.T) {
	local := &Identity{AuthProvider: ProviderLocal}
	assert.False(t, local.IsFederated())

	google := &Identity{AuthProvider: ProviderGoogle}
	assert.True(t, google.IsFederated())
}

func TestIdentity_IsAdmin(t *testing.T) {
	assert.True(t, (&Identity{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&Identity{Role: RoleUser}).IsAdmin())
}

func TestParseCatalogKind(t *testing.T) {
	kind, err := ParseCatalogKind("product")
	assert.NoError(t, err)
	assert.Equal(t, KindProduct, kind)

	kind, err = ParseCatalogKind("shop")
	assert.NoError(t, err)
	assert.Equal(t, KindShop, kind)

	_, err = ParseCatalogKind("bundle")
	assert.Error(t, err)

	_, err = ParseCatalogKind("")
	assert.Error(t, err)
}

func TestCart_FindLineIndex(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{
			{ItemID: "p-1", Kind: KindProduct, Quantity: 1},
			{ItemID: "s-1", Kind: KindShop, Quantity: 2},
		},
	}

	assert.Equal(t, 0, c.FindLineIndex(KindProduct, "p-1"))
	assert.Equal(t, 1, c.FindLineIndex(KindShop, "s-1"))

	// Same ID under the other kind is a different line.
	assert.Equal(t, -1, c.FindLineIndex(KindShop, "p-1"))
	assert.Equal(t, -1, c.FindLineIndex(KindProduct, "p-2"))
}

func TestCart_ItemCount(t *testing.T) {
	c := &Cart{
		Lines: []CartLine{
			{Quantity: 2},
			{Quantity: 3},
		},
	}
	assert.Equal(t, 5, c.ItemCount())

	empty := &Cart{}
	assert.Equal(t, 0, empty.ItemCount())
}

func TestResolvedCart_TotalCents(t *testing.T) {
	rc := &ResolvedCart{
		Items: []ResolvedLine{
			{Item: CatalogItem{PriceCents: 1999}, Quantity: 2},
			{Item: CatalogItem{PriceCents: 500}, Quantity: 1},
		},
	}
	// 3998 + 500 = 4498
	assert.Equal(t, int64(4498), rc.TotalCents())

	empty := &ResolvedCart{Items: []ResolvedLine{}}
	assert.Equal(t, int64(0), empty.TotalCents())
}
