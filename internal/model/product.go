// Package model defines the records exchanged between the pricing engine and its callers.
package model

import (
	"math"
	"strings"
)

// AdTier is the listing type a marketplace charges commission for.
type AdTier string

const (
	AdTierClassic AdTier = "classic"
	AdTierPremium AdTier = "premium"
)

// ParseAdTier maps a listing-type label to an AdTier. Empty and unknown
// labels resolve to classic, which is the cheaper tier on every marketplace.
func ParseAdTier(s string) AdTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "premium", "prêmio", "premio":
		return AdTierPremium
	default:
		return AdTierClassic
	}
}

// ProductRow is a normalized catalog row handed to the engine by the import
// collaborator. The engine never mutates it.
type ProductRow struct {
	SKU          string  `json:"sku" validate:"required"`
	Description  string  `json:"description,omitempty"`
	UnitCost     float64 `json:"unit_cost" validate:"gte=0"`
	ShippingCost float64 `json:"shipping_cost" validate:"gte=0"`
	Price        float64 `json:"price"`
	WeightKg     float64 `json:"weight_kg,omitempty" validate:"gte=0"`
	Category     string  `json:"category,omitempty"`
	AdTier       AdTier  `json:"ad_tier,omitempty"`
	UnitsSold    float64 `json:"units_sold,omitempty" validate:"gte=0"`
	Revenue      float64 `json:"revenue,omitempty"` // explicit revenue; derived from Price*UnitsSold when zero
}

// DirectCost is the per-unit product plus shipping cost.
func (p ProductRow) DirectCost() float64 {
	return p.UnitCost + p.ShippingCost
}

// SalesRevenue returns the revenue used for ABC ranking.
func (p ProductRow) SalesRevenue() float64 {
	if p.Revenue != 0 {
		return p.Revenue
	}
	return p.Price * p.UnitsSold
}

// Validate rejects rows the engine must not price: missing identifier,
// negative or non-finite costs, negative weight or sales.
func (p ProductRow) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"UnitCost", p.UnitCost},
		{"ShippingCost", p.ShippingCost},
		{"Price", p.Price},
		{"WeightKg", p.WeightKg},
		{"UnitsSold", p.UnitsSold},
		{"Revenue", p.Revenue},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
	}
	return ValidateStruct(p)
}
