// Package shopping provides buying-decision tooling: given an asking price
// and platform fee schedules, it estimates what an item would net after
// fees so the operator can judge a purchase in the field.
package shopping

import (
	"fmt"

	"github.com/crosspost/backend/internal/domain/shared"
	syncdomain "github.com/crosspost/backend/internal/domain/sync"
	"github.com/shopspring/decimal"
)

// FeeSchedule models one platform's selling fees as a percentage of the
// sale price plus a fixed per-order amount.
type FeeSchedule struct {
	Percentage decimal.Decimal `json:"percentage"` // e.g. 0.1325 for 13.25%
	Fixed      decimal.Decimal `json:"fixed"`      // flat per-order fee
}

// Fees returns the total fee for a sale price
func (f FeeSchedule) Fees(salePrice decimal.Decimal) decimal.Decimal {
	return salePrice.Mul(f.Percentage).Add(f.Fixed).Round(2)
}

// DefaultFeeSchedules returns published marketplace fee rates. Rates drift;
// operators override them in config when they do.
func DefaultFeeSchedules() map[syncdomain.PlatformCode]FeeSchedule {
	return map[syncdomain.PlatformCode]FeeSchedule{
		syncdomain.PlatformCodeEbay:     {Percentage: decimal.NewFromFloat(0.1325), Fixed: decimal.NewFromFloat(0.30)},
		syncdomain.PlatformCodeMercari:  {Percentage: decimal.NewFromFloat(0.129), Fixed: decimal.NewFromFloat(0.30)},
		syncdomain.PlatformCodePoshmark: {Percentage: decimal.NewFromFloat(0.20), Fixed: decimal.Zero},
		syncdomain.PlatformCodeDepop:    {Percentage: decimal.NewFromFloat(0.10), Fixed: decimal.Zero},
	}
}

// ProfitEstimate is the per-platform outcome of a what-if calculation
type ProfitEstimate struct {
	Platform  syncdomain.PlatformCode `json:"platform"`
	SalePrice decimal.Decimal         `json:"sale_price"`
	Fees      decimal.Decimal         `json:"fees"`
	Cost      decimal.Decimal         `json:"cost"`
	Net       decimal.Decimal         `json:"net"`
	MarginPct decimal.Decimal         `json:"margin_pct"` // net over sale price, percent
}

// ProfitCalculator estimates net profit per platform
type ProfitCalculator struct {
	schedules map[syncdomain.PlatformCode]FeeSchedule
}

// NewProfitCalculator creates a calculator. Nil schedules fall back to the
// published defaults.
func NewProfitCalculator(schedules map[syncdomain.PlatformCode]FeeSchedule) *ProfitCalculator {
	if schedules == nil {
		schedules = DefaultFeeSchedules()
	}
	return &ProfitCalculator{schedules: schedules}
}

// Estimate computes the net for one platform
func (c *ProfitCalculator) Estimate(platform syncdomain.PlatformCode, salePrice, cost decimal.Decimal) (*ProfitEstimate, error) {
	if salePrice.IsNegative() || salePrice.IsZero() {
		return nil, fmt.Errorf("%w: sale price must be positive", shared.ErrInvalidInput)
	}
	if cost.IsNegative() {
		return nil, fmt.Errorf("%w: cost cannot be negative", shared.ErrInvalidInput)
	}

	schedule, ok := c.schedules[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no fee schedule for %s", shared.ErrInvalidInput, platform)
	}

	fees := schedule.Fees(salePrice)
	net := salePrice.Sub(fees).Sub(cost).Round(2)
	margin := net.Div(salePrice).Mul(decimal.NewFromInt(100)).Round(1)

	return &ProfitEstimate{
		Platform:  platform,
		SalePrice: salePrice,
		Fees:      fees,
		Cost:      cost,
		Net:       net,
		MarginPct: margin,
	}, nil
}

// EstimateAll computes the net for every platform with a schedule, best
// margin first.
func (c *ProfitCalculator) EstimateAll(salePrice, cost decimal.Decimal) ([]*ProfitEstimate, error) {
	estimates := make([]*ProfitEstimate, 0, len(c.schedules))
	for _, platform := range syncdomain.AllPlatformCodes() {
		if _, ok := c.schedules[platform]; !ok {
			continue
		}
		e, err := c.Estimate(platform, salePrice, cost)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, e)
	}

	// insertion sort, the slice is tiny
	for i := 1; i < len(estimates); i++ {
		for j := i; j > 0 && estimates[j].Net.GreaterThan(estimates[j-1].Net); j-- {
			estimates[j], estimates[j-1] = estimates[j-1], estimates[j]
		}
	}

	return estimates, nil
}
