package model

import (
	"fmt"
	"strings"
)

// Family is one of the entity kinds that participate in federated search.
type Family string

const (
	FamilyBusiness Family = "business"
	FamilyCatalog  Family = "catalog"
	FamilyProduct  Family = "product"
)

// Families lists every family in merge tie-break order.
var Families = []Family{FamilyBusiness, FamilyCatalog, FamilyProduct}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	switch f {
	case FamilyBusiness, FamilyCatalog, FamilyProduct:
		return true
	}
	return false
}

// Order returns the position of f in Families, used to break score ties deterministically.
func (f Family) Order() int {
	for i, fam := range Families {
		if fam == f {
			return i
		}
	}
	return len(Families)
}

// ParseFamily parses a family name case-insensitively.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFamily, s)
	}
	return f, nil
}

// Scope selects which families a search runs against.
type Scope string

const (
	ScopeAll        Scope = "ALL"
	ScopeBusinesses Scope = "BUSINESSES"
	ScopeCatalogs   Scope = "CATALOGS"
	ScopeProducts   Scope = "PRODUCTS"
)

// Families expands the scope into the families it covers.
// An unknown scope covers nothing.
func (s Scope) Families() []Family {
	switch s {
	case ScopeAll:
		return Families
	case ScopeBusinesses:
		return []Family{FamilyBusiness}
	case ScopeCatalogs:
		return []Family{FamilyCatalog}
	case ScopeProducts:
		return []Family{FamilyProduct}
	}
	return nil
}

// ParseScope parses a scope name case-insensitively. Singular family names are accepted too.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return ScopeAll, nil
	case "BUSINESSES", "BUSINESS":
		return ScopeBusinesses, nil
	case "CATALOGS", "CATALOG":
		return ScopeCatalogs, nil
	case "PRODUCTS", "PRODUCT":
		return ScopeProducts, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}
