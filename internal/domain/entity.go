package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingOrder is an order accepted by the downstream engine and not yet
// terminated. Rows are owned by the engine; the gateway only reads them.
type PendingOrder struct {
	ClientOrderID        string          `gorm:"column:clOrdID;primaryKey" json:"client_order_id"`
	Symbol               string          `gorm:"column:symbol" json:"symbol"`
	Side                 string          `gorm:"column:side" json:"side"` // "BUY", "SELL"
	OrderType            string          `gorm:"column:ordType" json:"order_type"`
	Price                decimal.Decimal `gorm:"column:price;type:real" json:"price"`
	Quantity             decimal.Decimal `gorm:"column:quantity;type:real" json:"quantity"`
	ExecutedQuantity     decimal.Decimal `gorm:"column:executedQuantity;type:real" json:"executed_quantity"`
	LastExecutedQuantity decimal.Decimal `gorm:"column:lastExecutedQuantity;type:real" json:"last_executed_quantity"`
	LastExecutedPrice    decimal.Decimal `gorm:"column:lastExecutedPrice;type:real" json:"last_executed_price"`
	OpenQuantity         decimal.Decimal `gorm:"column:openQuantity;type:real" json:"open_quantity"`
}

// TableName binds PendingOrder to the engine's table.
func (PendingOrder) TableName() string { return "pending_order" }

// OrderHistoryRecord is a terminal order row written by the downstream engine.
type OrderHistoryRecord struct {
	ClientOrderID        string          `gorm:"column:clOrdID" json:"client_order_id"`
	Symbol               string          `gorm:"column:symbol" json:"symbol"`
	Side                 string          `gorm:"column:side" json:"side"`
	OrderType            string          `gorm:"column:ordType" json:"order_type"`
	Price                decimal.Decimal `gorm:"column:price;type:real" json:"price"`
	Quantity             decimal.Decimal `gorm:"column:quantity;type:real" json:"quantity"`
	ExecutedQuantity     decimal.Decimal `gorm:"column:executedQuantity;type:real" json:"executed_quantity"`
	LastExecutedQuantity decimal.Decimal `gorm:"column:lastExecutedQuantity;type:real" json:"last_executed_quantity"`
	LastExecutedPrice    decimal.Decimal `gorm:"column:lastExecutedPrice;type:real" json:"last_executed_price"`
	Status               string          `gorm:"column:status" json:"status"`
}

func (OrderHistoryRecord) TableName() string { return "order_history" }

// ClientOrderSequence persists the last client order id handed out by the
// gateway. It lives in the gateway's own state database.
type ClientOrderSequence struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	LastID    uint64    `json:"last_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClientOrderSequence) TableName() string { return "client_order_sequence" }
