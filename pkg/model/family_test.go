package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily(" Product ")
	require.NoError(t, err)
	assert.Equal(t, FamilyProduct, f)

	_, err = ParseFamily("user")
	assert.ErrorIs(t, err, ErrInvalidFamily)
}

func TestFamily_Order(t *testing.T) {
	assert.Equal(t, 0, FamilyBusiness.Order())
	assert.Equal(t, 1, FamilyCatalog.Order())
	assert.Equal(t, 2, FamilyProduct.Order())
	assert.Equal(t, 3, Family("other").Order())
}

func TestScope_Families(t *testing.T) {
	tests := []struct {
		scope    Scope
		expected []Family
	}{
		{ScopeAll, []Family{FamilyBusiness, FamilyCatalog, FamilyProduct}},
		{ScopeBusinesses, []Family{FamilyBusiness}},
		{ScopeCatalogs, []Family{FamilyCatalog}},
		{ScopeProducts, []Family{FamilyProduct}},
		{Scope("USERS"), nil},
	}
	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.scope.Families())
		})
	}
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, s)

	s, err = ParseScope("catalog")
	require.NoError(t, err)
	assert.Equal(t, ScopeCatalogs, s)

	_, err = ParseScope("people")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestAverageStars(t *testing.T) {
	assert.Equal(t, 0.0, AverageStars(nil))
	assert.InDelta(t, 3.5, AverageStars([]Rating{{Stars: 5}, {Stars: 2}}), 1e-9)
	assert.InDelta(t, 4.0, AverageStars([]Rating{{Stars: 4}}), 1e-9)
}

func TestEntity_Families(t *testing.T) {
	var e Entity = &Business{ID: 1}
	assert.Equal(t, FamilyBusiness, e.Family())
	e = &Catalog{ID: 2}
	assert.Equal(t, FamilyCatalog, e.Family())
	assert.Equal(t, int64(2), e.EntityID())
	e = &Product{ID: 3}
	assert.Equal(t, FamilyProduct, e.Family())
}
