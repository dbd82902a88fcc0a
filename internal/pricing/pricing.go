// Package pricing computes order money amounts with decimal arithmetic and
// rounds every result to cents.
package pricing

import (
	"github.com/shopspring/decimal"

	"restaurant-system/internal/models"
)

var hundred = decimal.NewFromInt(100)

// LineTotal returns unitPrice * quantity
func LineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

// Subtotal sums the item totals
func Subtotal(items []models.OrderItem) float64 {
	return sum(items).InexactFloat64()
}

// Tip returns subtotal * percentage / 100
func Tip(subtotal, percentage float64) float64 {
	return tip(decimal.NewFromFloat(subtotal), percentage).InexactFloat64()
}

// Totals prices the item list. The tip is zero when withTip is false.
func Totals(items []models.OrderItem, percentage float64, withTip bool) models.OrderTotals {
	subtotal := sum(items)
	t := decimal.Zero
	if withTip {
		t = tip(subtotal, percentage)
	}
	return models.OrderTotals{
		Subtotal: subtotal.InexactFloat64(),
		Tip:      t.InexactFloat64(),
		Total:    subtotal.Add(t).Round(2).InexactFloat64(),
	}
}

// Percentage returns part / whole * 100, or zero when whole is zero
func Percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(hundred).
		Round(2).
		InexactFloat64()
}

// Average returns total / count rounded to cents, or zero when count is zero
func Average(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromFloat(total).
		Div(decimal.NewFromInt(int64(count))).
		Round(2).
		InexactFloat64()
}

// Sum adds amounts without accumulating binary float error
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

func sum(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.TotalPrice))
	}
	return total.Round(2)
}

func tip(subtotal decimal.Decimal, percentage float64) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromFloat(percentage)).Div(hundred).Round(2)
}
