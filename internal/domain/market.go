package domain

import "github.com/shopspring/decimal"

// SymbolReference is a tradable symbol with its price band.
// Read-only reference data; the gateway never writes it.
type SymbolReference struct {
	Symbol    string          `gorm:"column:symbol;primaryKey" json:"symbol"`
	Close     decimal.Decimal `gorm:"column:close;type:real" json:"close"`
	LimitUp   decimal.Decimal `gorm:"column:limitUp;type:real" json:"limit_up"`
	LimitDown decimal.Decimal `gorm:"column:limitDown;type:real" json:"limit_down"`
	Open      decimal.Decimal `gorm:"column:open;type:real" json:"open"`
	High      decimal.Decimal `gorm:"column:high;type:real" json:"high"`
	Low       decimal.Decimal `gorm:"column:low;type:real" json:"low"`
	LastPrice decimal.Decimal `gorm:"column:lastPrice;type:real" json:"last_price"`
	Volume    decimal.Decimal `gorm:"column:volume;type:real" json:"volume"`
}

// TableName binds SymbolReference to the reference table.
func (SymbolReference) TableName() string { return "symbol" }

// HasValidBand reports whether LimitDown <= LimitUp.
func (s *SymbolReference) HasValidBand() bool {
	return s.LimitDown.LessThanOrEqual(s.LimitUp)
}

// InBand reports whether price lies inside [LimitDown, LimitUp].
func (s *SymbolReference) InBand(price decimal.Decimal) bool {
	return !price.GreaterThan(s.LimitUp) && !price.LessThan(s.LimitDown)
}
