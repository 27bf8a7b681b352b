package domain

import "testing"

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
	}{
		{"BUY", SideBuy},
		{"buy", SideBuy},
		{" Sell ", SideSell},
		{"1", SideBuy},
		{"2", SideSell},
		{"0", SideUnknown},
		{"", SideUnknown},
		{"HOLD", SideUnknown},
	}
	for _, tt := range tests {
		if got := ParseSide(tt.in); got != tt.want {
			t.Errorf("ParseSide(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSide_Code(t *testing.T) {
	if SideBuy.Code() != "1" || SideSell.Code() != "2" || SideUnknown.Code() != "0" {
		t.Error("unexpected side codes")
	}
	if SideUnknown.Valid() {
		t.Error("SideUnknown must not be valid")
	}
}

func TestClientOrderID_Seq(t *testing.T) {
	id := FormatClientOrderID(42)
	if id != "42" {
		t.Fatalf("expected 42, got %s", id)
	}
	n, ok := id.Seq()
	if !ok || n != 42 {
		t.Errorf("Seq() = %d, %v", n, ok)
	}
	if _, ok := ClientOrderID("ext-1").Seq(); ok {
		t.Error("non-numeric id should not have a sequence")
	}
}
