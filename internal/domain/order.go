package domain

import (
	"strconv"
	"strings"
)

// Side is the direction of an order. Only SideBuy and SideSell are valid on
// the wire; SideUnknown exists so parsing stays total.
type Side int

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// Stored side spellings used by the order tables.
const (
	SideNameBuy  = "BUY"
	SideNameSell = "SELL"
)

// Order actions as they appear at the head of a log line.
const (
	ActionNew    = "NEW"
	ActionModify = "MODIFY"
	ActionCancel = "CANCEL"
)

// ParseSide maps user or stored input to a Side.
// Accepts BUY/SELL (any case) and the wire codes 1/2.
func ParseSide(s string) Side {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case SideNameBuy, "1":
		return SideBuy
	case SideNameSell, "2":
		return SideSell
	default:
		return SideUnknown
	}
}

// Valid reports whether the side may appear in a committed message.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Code returns the wire code: "1" buy, "2" sell, "0" otherwise.
func (s Side) Code() string {
	switch s {
	case SideBuy:
		return "1"
	case SideSell:
		return "2"
	default:
		return "0"
	}
}

// String returns the stored spelling of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return SideNameBuy
	case SideSell:
		return SideNameSell
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets Side travel as "BUY"/"SELL" in JSON.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ClientOrderID names one order across its lifecycle.
type ClientOrderID string

// FormatClientOrderID renders a sequence number as an id.
func FormatClientOrderID(n uint64) ClientOrderID {
	return ClientOrderID(strconv.FormatUint(n, 10))
}

// Seq returns the numeric value of a gateway-issued id.
// ok is false for ids that are not plain decimal numbers.
func (id ClientOrderID) Seq() (uint64, bool) {
	n, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (id ClientOrderID) String() string { return string(id) }
