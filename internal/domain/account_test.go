package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewAccount_Defaults(t *testing.T) {
	a := NewAccount("acct-1", "alice", time.Now())

	if !a.Cash.Equal(d("100000")) {
		t.Errorf("Cash = %s, want 100000", a.Cash)
	}
	if len(a.Holdings) != 0 {
		t.Errorf("got %d holdings, want 0", len(a.Holdings))
	}
	if a.Fingerprint != Fingerprint(a) {
		t.Error("Fingerprint not computed on creation")
	}
}

func TestAccount_CreditAccumulates(t *testing.T) {
	a := NewAccount("acct-1", "alice", time.Now())
	a.Credit("AAPL", d("10"))
	a.Credit("AAPL", d("2.5"))

	if got := a.Quantity("AAPL"); !got.Equal(d("12.5")) {
		t.Errorf("Quantity(AAPL) = %s, want 12.5", got)
	}
}

func TestAccount_DebitRemovesDust(t *testing.T) {
	tests := []struct {
		name     string
		held     string
		debit    string
		wantKept bool
		want     string
	}{
		{"exact", "10", "10", false, "0"},
		{"below epsilon", "10", "9.9995", false, "0"},
		{"at epsilon", "10", "9.999", false, "0"},
		{"just above epsilon", "10", "9.9985", true, "0.0015"},
		{"partial", "10", "4", true, "6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAccount("acct-1", "alice", time.Now())
			a.Credit("AAPL", d(tt.held))
			a.Debit("AAPL", d(tt.debit))

			got, ok := a.Holdings["AAPL"]
			if ok != tt.wantKept {
				t.Fatalf("holding kept = %v, want %v", ok, tt.wantKept)
			}
			if ok && !got.Equal(d(tt.want)) {
				t.Errorf("Quantity(AAPL) = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAccount_CloneIsDeep(t *testing.T) {
	a := NewAccount("acct-1", "alice", time.Now())
	a.Credit("AAPL", d("10"))

	c := a.Clone()
	c.Credit("AAPL", d("5"))
	c.Cash = d("1")

	if !a.Quantity("AAPL").Equal(d("10")) {
		t.Errorf("original holding mutated through clone: %s", a.Quantity("AAPL"))
	}
	if !a.Cash.Equal(DefaultCash) {
		t.Errorf("original cash mutated through clone: %s", a.Cash)
	}
}

func TestAccount_ResetBalances(t *testing.T) {
	a := NewAccount("acct-1", "alice", time.Now())
	a.Cash = d("12")
	a.Credit("AAPL", d("10"))

	a.ResetBalances()

	if !a.Cash.Equal(DefaultCash) || len(a.Holdings) != 0 {
		t.Errorf("after reset cash=%s holdings=%v", a.Cash, a.Holdings)
	}
	if a.DisplayName != "alice" {
		t.Errorf("DisplayName = %q, want alice", a.DisplayName)
	}
}

func TestAccount_Symbols_Sorted(t *testing.T) {
	a := NewAccount("acct-1", "alice", time.Now())
	a.Credit("TSLA", d("1"))
	a.Credit("AAPL", d("1"))
	a.Credit("MSFT", d("1"))

	got := a.Symbols()
	want := []string{"AAPL", "MSFT", "TSLA"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Symbols() = %v, want %v", got, want)
		}
	}
}
