package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestEncode_Scenarios(t *testing.T) {
	t.Run("new", func(t *testing.T) {
		m, err := BuildNewOrder("1", "ABC", decimal.RequireFromString("15.00"), SideBuy, decimal.NewFromInt(100))
		if err != nil {
			t.Fatalf("BuildNewOrder failed: %v", err)
		}
		if got := m.Encode(); got != "NEW,1,ABC,15.00,1,100" {
			t.Errorf("Encode() = %q", got)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		m, err := BuildCancelOrder("7", "ABC", SideBuy)
		if err != nil {
			t.Fatalf("BuildCancelOrder failed: %v", err)
		}
		if got := m.Encode(); got != "CANCEL,7,ABC,1" {
			t.Errorf("Encode() = %q", got)
		}
	})

	t.Run("modify", func(t *testing.T) {
		m, err := BuildModifyOrder("7", "ABC", decimal.RequireFromString("18.00"), SideSell, decimal.NewFromInt(50))
		if err != nil {
			t.Fatalf("BuildModifyOrder failed: %v", err)
		}
		if got := m.Encode(); got != "MODIFY,7,ABC,18.00,2,50,0" {
			t.Errorf("Encode() = %q", got)
		}
	})
}

func TestFormatPrice(t *testing.T) {
	tests := map[string]string{
		"15":      "15.00",
		"15.5":    "15.50",
		"15.00":   "15.00",
		"15.125":  "15.125",
		"15.1250": "15.125",
		"0.001":   "0.001",
	}
	for in, want := range tests {
		if got := FormatPrice(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatPrice(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestBuild_RejectsUnknownSide(t *testing.T) {
	if _, err := BuildNewOrder("1", "ABC", decimal.NewFromInt(1), SideUnknown, decimal.NewFromInt(1)); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
	if _, err := BuildCancelOrder("1", "ABC", SideUnknown); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestBuild_RejectsSeparators(t *testing.T) {
	if _, err := BuildCancelOrder("1", "A,B", SideBuy); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage for comma, got %v", err)
	}
	if _, err := BuildCancelOrder("1\n", "ABC", SideBuy); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage for newline, got %v", err)
	}
	if _, err := BuildCancelOrder("", "ABC", SideBuy); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage for empty id, got %v", err)
	}
}

func TestParseMessage_RoundTrip(t *testing.T) {
	newMsg, _ := BuildNewOrder("42", "ABC", decimal.RequireFromString("15.125"), SideSell, decimal.RequireFromString("0.5"))
	modMsg, _ := BuildModifyOrder("7", "XYZ", decimal.RequireFromString("18"), SideBuy, decimal.NewFromInt(50))
	canMsg, _ := BuildCancelOrder("7", "ABC", SideSell)

	for _, orig := range []OrderMessage{newMsg, modMsg, canMsg} {
		t.Run(orig.Action(), func(t *testing.T) {
			parsed, err := ParseMessage(orig.Encode())
			if err != nil {
				t.Fatalf("ParseMessage failed: %v", err)
			}
			if parsed.Action() != orig.Action() ||
				parsed.ClientOrderID() != orig.ClientOrderID() ||
				parsed.Symbol() != orig.Symbol() ||
				parsed.Side() != orig.Side() {
				t.Fatalf("header mismatch: %v vs %v", parsed.Fields(), orig.Fields())
			}

			switch o := orig.(type) {
			case NewOrder:
				p := parsed.(NewOrder)
				if !p.Price().Equal(o.Price()) || !p.Quantity().Equal(o.Quantity()) {
					t.Errorf("body mismatch: %v vs %v", p.Fields(), o.Fields())
				}
			case ModifyOrder:
				p := parsed.(ModifyOrder)
				if !p.Price().Equal(o.Price()) || !p.Quantity().Equal(o.Quantity()) || p.ExtraFlag() != ModifyExtraFlag {
					t.Errorf("body mismatch: %v vs %v", p.Fields(), o.Fields())
				}
			}

			if parsed.Encode() != orig.Encode() {
				t.Errorf("re-encode = %q, want %q", parsed.Encode(), orig.Encode())
			}
		})
	}
}

func TestParseMessage_Malformed(t *testing.T) {
	lines := []string{
		"",
		"FILL,1,ABC,1",
		"NEW,1,ABC,15.00,1",
		"NEW,1,ABC,abc,1,100",
		"NEW,1,ABC,15.00,0,100",
		"MODIFY,7,ABC,18.00,2,50,1",
		"CANCEL,7,ABC,BUY",
	}
	for _, line := range lines {
		if _, err := ParseMessage(line); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("ParseMessage(%q): expected ErrMalformedMessage, got %v", line, err)
		}
	}
}
