package metrics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownProduct is returned when a product is not part of the catalog.
var ErrUnknownProduct = errors.New("metrics: unknown product")

var defaultProducts = []string{
	"Portfolio Analytics",
	"Order Management",
	"Risk Engine",
	"Client Reporting",
	"Data Hub",
	"Trading Platform",
	"Compliance Suite",
}

// Catalog lists the products and quarters the dashboard reports on.
type Catalog struct {
	Products []string `yaml:"products" json:"products"`
	Quarters []string `yaml:"quarters" json:"quarters"`
}

// DefaultCatalog returns the built-in seven products and FY24 Q1 through FY26 Q4.
func DefaultCatalog() Catalog {
	quarters := QuarterRange(Quarter{Year: 2024, Number: 1}, Quarter{Year: 2026, Number: 4})
	labels := make([]string, len(quarters))
	for i, q := range quarters {
		labels[i] = q.String()
	}
	return Catalog{
		Products: append([]string(nil), defaultProducts...),
		Quarters: labels,
	}
}

// Normalize canonicalizes quarter labels and fills empty sections from the defaults.
func (c Catalog) Normalize() (Catalog, error) {
	defaults := DefaultCatalog()
	out := Catalog{}
	seen := map[string]struct{}{}
	for _, p := range c.Products {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(p)]; ok {
			continue
		}
		seen[strings.ToLower(p)] = struct{}{}
		out.Products = append(out.Products, p)
	}
	if len(out.Products) == 0 {
		out.Products = defaults.Products
	}
	for _, label := range c.Quarters {
		normalized, err := NormalizeQuarter(label)
		if err != nil {
			return Catalog{}, fmt.Errorf("metrics: catalog: %w", err)
		}
		out.Quarters = append(out.Quarters, normalized)
	}
	if len(out.Quarters) == 0 {
		out.Quarters = defaults.Quarters
	}
	return out, nil
}

// Product resolves a product name case-insensitively to its catalog spelling.
func (c Catalog) Product(name string) (string, error) {
	name = strings.TrimSpace(name)
	for _, p := range c.Products {
		if strings.EqualFold(p, name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProduct, name)
}

// Quarter resolves a quarter label to its canonical catalog spelling.
func (c Catalog) Quarter(label string) (string, error) {
	normalized, err := NormalizeQuarter(label)
	if err != nil {
		return "", err
	}
	for _, q := range c.Quarters {
		if q == normalized {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: %q is outside the reporting window", ErrInvalidQuarter, label)
}

// DefaultScope selects the first product and the latest quarter.
func (c Catalog) DefaultScope() Scope {
	var scope Scope
	if len(c.Products) > 0 {
		scope.Product = c.Products[0]
	}
	if len(c.Quarters) > 0 {
		scope.Quarter = c.Quarters[len(c.Quarters)-1]
	}
	return scope
}

// Resolve validates a scope against the catalog.
func (c Catalog) Resolve(scope Scope) (Scope, error) {
	product, err := c.Product(scope.Product)
	if err != nil {
		return Scope{}, err
	}
	quarter, err := c.Quarter(scope.Quarter)
	if err != nil {
		return Scope{}, err
	}
	return Scope{Product: product, Quarter: quarter}, nil
}
