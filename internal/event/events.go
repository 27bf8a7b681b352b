package event

import (
	"order_gateway/internal/domain"
)

// Type defines the type of command handled by the sequencer.
type Type uint16

const (
	EvPlaceOrder Type = iota + 1
	EvModifyOrder
	EvCancelOrder
)

func (t Type) String() string {
	switch t {
	case EvPlaceOrder:
		return domain.ActionNew
	case EvModifyOrder:
		return domain.ActionModify
	case EvCancelOrder:
		return domain.ActionCancel
	default:
		return "UNKNOWN"
	}
}

// Command is a validated submission waiting for the sequencer.
type Command interface {
	GetType() Type
	GetTs() int64
}

// BaseCommand contains common fields for all commands.
type BaseCommand struct {
	Ts int64 `json:"ts"` // Unix microseconds at validation time
}

func (c BaseCommand) GetTs() int64 { return c.Ts }

// PlaceOrderCommand asks for a fresh id and a NEW line.
type PlaceOrderCommand struct {
	BaseCommand
	Order domain.NormalizedOrder `json:"order"`
}

func (c PlaceOrderCommand) GetType() Type { return EvPlaceOrder }

// ModifyOrderCommand writes a MODIFY line for an existing id.
type ModifyOrderCommand struct {
	BaseCommand
	ClientOrderID domain.ClientOrderID   `json:"client_order_id"`
	Order         domain.NormalizedOrder `json:"order"`
}

func (c ModifyOrderCommand) GetType() Type { return EvModifyOrder }

// CancelOrderCommand writes a CANCEL line for an existing id.
type CancelOrderCommand struct {
	BaseCommand
	Cancel domain.NormalizedCancel `json:"cancel"`
}

func (c CancelOrderCommand) GetType() Type { return EvCancelOrder }
