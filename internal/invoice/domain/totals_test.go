package domain

import "testing"

func TestItemAmountRoundsHalfUp(t *testing.T) {
	cases := []struct {
		quantity float64
		unitRate int64
		want     int64
	}{
		{2, 5000, 10000},
		{1, 2500, 2500},
		{1.5, 333, 500},
		{0.333, 100, 33},
		{2.5, 1, 3},
		{0.004, 100, 0},
	}

	for _, tc := range cases {
		got := ItemAmount(tc.quantity, tc.unitRate)
		if got != tc.want {
			t.Fatalf("ItemAmount(%v, %d) = %d, want %d", tc.quantity, tc.unitRate, got, tc.want)
		}
	}
}

func TestComputeTotals(t *testing.T) {
	items := []LineItem{
		{Quantity: 2, UnitRate: 5000, Amount: ItemAmount(2, 5000)},
		{Quantity: 1, UnitRate: 2500, Amount: ItemAmount(1, 2500)},
	}

	totals := ComputeTotals(items, 0.08, 0)
	if totals.Subtotal != 12500 {
		t.Fatalf("subtotal = %d, want 12500", totals.Subtotal)
	}
	if totals.TaxAmount != 1000 {
		t.Fatalf("tax = %d, want 1000", totals.TaxAmount)
	}
	if totals.Total != 13500 {
		t.Fatalf("total = %d, want 13500", totals.Total)
	}
	if totals.BalanceDue != 13500 {
		t.Fatalf("balance = %d, want 13500", totals.BalanceDue)
	}

	partial := ComputeTotals(items, 0.08, 10000)
	if partial.BalanceDue != 3500 {
		t.Fatalf("balance after 10000 paid = %d, want 3500", partial.BalanceDue)
	}
}

func TestComputeTotalsTaxRoundsOnceOnSubtotal(t *testing.T) {
	// Three items of 33 cents at 8.25% tax: per-line tax would round to
	// 3x3=9, a single pass over the subtotal gives round(99*0.0825)=8.
	items := []LineItem{
		{Amount: 33},
		{Amount: 33},
		{Amount: 33},
	}

	totals := ComputeTotals(items, 0.0825, 0)
	if totals.TaxAmount != 8 {
		t.Fatalf("tax = %d, want 8", totals.TaxAmount)
	}
}

func TestComputeTotalsPreservesOverpayment(t *testing.T) {
	items := []LineItem{{Amount: 10000}}

	totals := ComputeTotals(items, 0, 12000)
	if totals.BalanceDue != -2000 {
		t.Fatalf("balance = %d, want -2000", totals.BalanceDue)
	}
}

func TestComputeTotalsEmptyItems(t *testing.T) {
	totals := ComputeTotals(nil, 0.1, 0)
	if totals.Subtotal != 0 || totals.TaxAmount != 0 || totals.Total != 0 {
		t.Fatalf("empty invoice totals = %+v, want all zero", totals)
	}
}
