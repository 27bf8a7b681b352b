package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ModifyExtraFlag is the trailing field of every MODIFY line. The downstream
// engine expects it; it carries no meaning on this side.
const ModifyExtraFlag = "0"

const fieldSep = ","

// ErrMalformedMessage is returned when a message cannot be built or parsed.
var ErrMalformedMessage = errors.New("malformed order message")

// OrderMessage is one order-lifecycle instruction for the downstream engine.
// Implementations are immutable once built.
type OrderMessage interface {
	Action() string
	ClientOrderID() ClientOrderID
	Symbol() string
	Side() Side
	// Fields returns the wire fields in order, action first.
	Fields() []string
	// Encode returns the log line without the trailing newline.
	Encode() string
}

// NewOrder places a fresh order.
type NewOrder struct {
	id       ClientOrderID
	symbol   string
	price    decimal.Decimal
	side     Side
	quantity decimal.Decimal
}

// BuildNewOrder constructs a NEW message.
func BuildNewOrder(id ClientOrderID, symbol string, price decimal.Decimal, side Side, quantity decimal.Decimal) (NewOrder, error) {
	if err := checkHeader(id, symbol, side); err != nil {
		return NewOrder{}, err
	}
	return NewOrder{id: id, symbol: symbol, price: price, side: side, quantity: quantity}, nil
}

func (m NewOrder) Action() string               { return ActionNew }
func (m NewOrder) ClientOrderID() ClientOrderID { return m.id }
func (m NewOrder) Symbol() string               { return m.symbol }
func (m NewOrder) Side() Side                   { return m.side }
func (m NewOrder) Price() decimal.Decimal       { return m.price }
func (m NewOrder) Quantity() decimal.Decimal    { return m.quantity }

func (m NewOrder) Fields() []string {
	return []string{ActionNew, string(m.id), m.symbol, FormatPrice(m.price), m.side.Code(), FormatQuantity(m.quantity)}
}

func (m NewOrder) Encode() string { return strings.Join(m.Fields(), fieldSep) }

// ModifyOrder replaces symbol, price, side and quantity of a pending order.
type ModifyOrder struct {
	id       ClientOrderID
	symbol   string
	price    decimal.Decimal
	side     Side
	quantity decimal.Decimal
}

// BuildModifyOrder constructs a MODIFY message for an existing order id.
func BuildModifyOrder(id ClientOrderID, symbol string, price decimal.Decimal, side Side, quantity decimal.Decimal) (ModifyOrder, error) {
	if err := checkHeader(id, symbol, side); err != nil {
		return ModifyOrder{}, err
	}
	return ModifyOrder{id: id, symbol: symbol, price: price, side: side, quantity: quantity}, nil
}

func (m ModifyOrder) Action() string               { return ActionModify }
func (m ModifyOrder) ClientOrderID() ClientOrderID { return m.id }
func (m ModifyOrder) Symbol() string               { return m.symbol }
func (m ModifyOrder) Side() Side                   { return m.side }
func (m ModifyOrder) Price() decimal.Decimal       { return m.price }
func (m ModifyOrder) Quantity() decimal.Decimal    { return m.quantity }
func (m ModifyOrder) ExtraFlag() string            { return ModifyExtraFlag }

func (m ModifyOrder) Fields() []string {
	return []string{ActionModify, string(m.id), m.symbol, FormatPrice(m.price), m.side.Code(), FormatQuantity(m.quantity), ModifyExtraFlag}
}

func (m ModifyOrder) Encode() string { return strings.Join(m.Fields(), fieldSep) }

// CancelOrder withdraws a pending order.
type CancelOrder struct {
	id     ClientOrderID
	symbol string
	side   Side
}

// BuildCancelOrder constructs a CANCEL message for an existing order id.
func BuildCancelOrder(id ClientOrderID, symbol string, side Side) (CancelOrder, error) {
	if err := checkHeader(id, symbol, side); err != nil {
		return CancelOrder{}, err
	}
	return CancelOrder{id: id, symbol: symbol, side: side}, nil
}

func (m CancelOrder) Action() string               { return ActionCancel }
func (m CancelOrder) ClientOrderID() ClientOrderID { return m.id }
func (m CancelOrder) Symbol() string               { return m.symbol }
func (m CancelOrder) Side() Side                   { return m.side }

func (m CancelOrder) Fields() []string {
	return []string{ActionCancel, string(m.id), m.symbol, m.side.Code()}
}

func (m CancelOrder) Encode() string { return strings.Join(m.Fields(), fieldSep) }

// checkHeader enforces what every variant shares: a non-empty id, a symbol,
// a buy/sell side, and no separator or line break inside a field.
func checkHeader(id ClientOrderID, symbol string, side Side) error {
	if id == "" {
		return fmt.Errorf("%w: empty client order id", ErrMalformedMessage)
	}
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrMalformedMessage)
	}
	if !side.Valid() {
		return fmt.Errorf("%w: side %s", ErrMalformedMessage, side)
	}
	for _, f := range []string{string(id), symbol} {
		if strings.ContainsAny(f, ",\r\n") {
			return fmt.Errorf("%w: field %q contains a separator", ErrMalformedMessage, f)
		}
	}
	return nil
}

// FormatPrice renders a price with at least two decimals.
func FormatPrice(p decimal.Decimal) string {
	if p.Exponent() >= -2 {
		return p.StringFixed(2)
	}
	return p.String()
}

// FormatQuantity renders a quantity in its shortest form.
func FormatQuantity(q decimal.Decimal) string {
	return q.String()
}

// ParseMessage decodes one log line back into its message.
func ParseMessage(line string) (OrderMessage, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), fieldSep)
	if len(fields) == 0 || fields[0] == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedMessage)
	}

	switch fields[0] {
	case ActionNew:
		if len(fields) != 6 {
			return nil, fieldCountError(fields, 6)
		}
		price, side, qty, err := parseBody(fields[3], fields[4], fields[5])
		if err != nil {
			return nil, err
		}
		return BuildNewOrder(ClientOrderID(fields[1]), fields[2], price, side, qty)

	case ActionModify:
		if len(fields) != 7 {
			return nil, fieldCountError(fields, 7)
		}
		if fields[6] != ModifyExtraFlag {
			return nil, fmt.Errorf("%w: unexpected modify flag %q", ErrMalformedMessage, fields[6])
		}
		price, side, qty, err := parseBody(fields[3], fields[4], fields[5])
		if err != nil {
			return nil, err
		}
		return BuildModifyOrder(ClientOrderID(fields[1]), fields[2], price, side, qty)

	case ActionCancel:
		if len(fields) != 4 {
			return nil, fieldCountError(fields, 4)
		}
		side, err := parseSideCode(fields[3])
		if err != nil {
			return nil, err
		}
		return BuildCancelOrder(ClientOrderID(fields[1]), fields[2], side)

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedMessage, fields[0])
	}
}

func parseBody(priceStr, sideStr, qtyStr string) (decimal.Decimal, Side, decimal.Decimal, error) {
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, SideUnknown, decimal.Zero, fmt.Errorf("%w: price %q", ErrMalformedMessage, priceStr)
	}
	side, err := parseSideCode(sideStr)
	if err != nil {
		return decimal.Zero, SideUnknown, decimal.Zero, err
	}
	qty, err := decimal.NewFromString(qtyStr)
	if err != nil {
		return decimal.Zero, SideUnknown, decimal.Zero, fmt.Errorf("%w: quantity %q", ErrMalformedMessage, qtyStr)
	}
	return price, side, qty, nil
}

// parseSideCode accepts only the wire codes.
func parseSideCode(code string) (Side, error) {
	switch code {
	case "1":
		return SideBuy, nil
	case "2":
		return SideSell, nil
	default:
		return SideUnknown, fmt.Errorf("%w: side code %q", ErrMalformedMessage, code)
	}
}

func fieldCountError(fields []string, want int) error {
	return fmt.Errorf("%w: %s has %d fields, want %d", ErrMalformedMessage, fields[0], len(fields), want)
}
