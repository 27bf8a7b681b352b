package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NewOrderRequest is raw user input for a new order.
type NewOrderRequest struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Side     string `json:"side"`
}

// ModifyOrderRequest is raw user input for modifying a pending order.
type ModifyOrderRequest struct {
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	Side          string `json:"side"`
}

// CancelOrderRequest selects a pending order to cancel.
type CancelOrderRequest struct {
	ClientOrderID string `json:"client_order_id"`
}

// NormalizedOrder is a validated order body.
type NormalizedOrder struct {
	Symbol   string
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Side     Side
}

// NormalizedCancel carries what a CANCEL line needs, recovered from the
// stored order.
type NormalizedCancel struct {
	ClientOrderID ClientOrderID
	Symbol        string
	Side          Side
}

// ValidateNew checks a new-order submission against the symbol's reference
// data. ref is nil when the symbol does not exist. The first failing check
// wins, in this order: missing field, not numeric, invalid side, unknown
// symbol, price out of band.
func ValidateNew(req NewOrderRequest, ref *SymbolReference) (NormalizedOrder, error) {
	symbol := strings.TrimSpace(req.Symbol)
	priceStr := strings.TrimSpace(req.Price)
	qtyStr := strings.TrimSpace(req.Quantity)
	sideStr := strings.TrimSpace(req.Side)

	switch {
	case symbol == "":
		return NormalizedOrder{}, newValidationError("symbol", ErrMissingField)
	case priceStr == "":
		return NormalizedOrder{}, newValidationError("price", ErrMissingField)
	case qtyStr == "":
		return NormalizedOrder{}, newValidationError("quantity", ErrMissingField)
	case sideStr == "":
		return NormalizedOrder{}, newValidationError("side", ErrMissingField)
	}

	price, ok := parseAmount(priceStr)
	if !ok {
		return NormalizedOrder{}, newValidationError("price", ErrNotNumeric)
	}
	qty, ok := parseAmount(qtyStr)
	if !ok {
		return NormalizedOrder{}, newValidationError("quantity", ErrNotNumeric)
	}

	side := ParseSide(sideStr)
	if !side.Valid() {
		return NormalizedOrder{}, newValidationError("side", ErrInvalidSide)
	}

	if ref == nil || !isWireSafe(symbol) {
		return NormalizedOrder{}, newValidationError("symbol", ErrUnknownSymbol)
	}

	if !ref.InBand(price) {
		return NormalizedOrder{}, newValidationError("price", ErrPriceOutOfRange)
	}

	return NormalizedOrder{
		Symbol:   symbol,
		Price:    price,
		Quantity: qty,
		Side:     side,
	}, nil
}

// ValidateModify checks a modify submission. The target order must exist
// before the new field set is validated like a new order.
func ValidateModify(req ModifyOrderRequest, target *PendingOrder, ref *SymbolReference) (ClientOrderID, NormalizedOrder, error) {
	if target == nil {
		return "", NormalizedOrder{}, newValidationError("client_order_id", ErrOrderNotFound)
	}

	order, err := ValidateNew(NewOrderRequest{
		Symbol:   req.Symbol,
		Price:    req.Price,
		Quantity: req.Quantity,
		Side:     req.Side,
	}, ref)
	if err != nil {
		return "", NormalizedOrder{}, err
	}
	return ClientOrderID(target.ClientOrderID), order, nil
}

// ValidateCancel checks a cancel submission. Symbol and side come from the
// stored order, never from user input.
func ValidateCancel(target *PendingOrder) (NormalizedCancel, error) {
	if target == nil {
		return NormalizedCancel{}, newValidationError("client_order_id", ErrOrderNotFound)
	}
	side := ParseSide(target.Side)
	if !side.Valid() {
		return NormalizedCancel{}, newValidationError("side", ErrInvalidSide)
	}
	if target.Symbol == "" || !isWireSafe(target.Symbol) {
		return NormalizedCancel{}, newValidationError("symbol", ErrUnknownSymbol)
	}
	return NormalizedCancel{
		ClientOrderID: ClientOrderID(target.ClientOrderID),
		Symbol:        target.Symbol,
		Side:          side,
	}, nil
}

// maxAmountLen bounds price and quantity input. Exponent notation is not
// accepted: "1e2000000" would expand to millions of digits on the wire.
const maxAmountLen = 32

func parseAmount(s string) (decimal.Decimal, bool) {
	if len(s) > maxAmountLen || strings.ContainsAny(s, "eE") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// isWireSafe reports whether s can be written as one field of a log line.
func isWireSafe(s string) bool {
	return !strings.ContainsAny(s, ",\r\n")
}
