package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEffectOfTable(t *testing.T) {
	cases := []struct {
		typ  TransactionType
		want Effect
	}{
		{TypeTopUp, Effect{Received: d("100"), Charges: d("2")}},
		{TypeFiatConvert, Effect{Received: d("100"), Charges: d("2")}},
		{TypePayout, Effect{PaidOut: d("100"), Charges: d("2")}},
		{TypeFrozen, Effect{Frozen: d("100")}},
		{TypeRunaway, Effect{Runaway: d("100")}},
	}
	for _, tc := range cases {
		got := EffectOf(tc.typ, d("100"), d("2"), 1)
		if !got.Equal(tc.want) {
			t.Fatalf("%s: want=%+v got=%+v", tc.typ, tc.want, got)
		}
	}
}

func TestEffectRevertCancelsApply(t *testing.T) {
	for _, typ := range TransactionTypes() {
		sum := EffectOf(typ, d("42.5"), d("1.25"), 1).Add(EffectOf(typ, d("42.5"), d("1.25"), -1))
		if !sum.IsZero() {
			t.Fatalf("%s: apply+revert should be zero, got=%+v", typ, sum)
		}
	}
}

func TestEffectZeroFeeAddsNoCharges(t *testing.T) {
	got := EffectOf(TypePayout, d("10"), decimal.Zero, 1)
	if !got.Charges.IsZero() {
		t.Fatalf("charges: want=0 got=%s", got.Charges)
	}
}

func TestParseTransactionType(t *testing.T) {
	if _, ok := ParseTransactionType("Payout"); !ok {
		t.Fatalf("Payout should parse")
	}
	if _, ok := ParseTransactionType("payout"); ok {
		t.Fatalf("labels are case-sensitive")
	}
	if _, ok := ParseTransactionType("Refund"); ok {
		t.Fatalf("Refund is not a ledger type")
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if got := NormalizeCurrency(" pkr "); got != "PKR" {
		t.Fatalf("want=PKR got=%s", got)
	}
	if got := NormalizeCurrency("JPY"); got != "USD" {
		t.Fatalf("want=USD got=%s", got)
	}
}
