package lightning

import (
	"fmt"
	"testing"

	"ln-relay-lab/internal/domain"
)

func TestFeeSchedule_GrossUpRoundTrip(t *testing.T) {
	values := []float64{0.5, 1, 10, 1234.5678, 3.5e6}
	bases := []float64{0, 1, 2.5}
	proportionals := []float64{0, 0.005, 0.05, 0.3, 0.9}

	for hops := 1; hops <= 5; hops++ {
		for _, base := range bases {
			for _, p := range proportionals {
				f := FeeSchedule{Base: base, Proportional: p, Hops: hops + 2}
				for _, v := range values {
					name := fmt.Sprintf("hops=%d/base=%g/p=%g/v=%g", hops, base, p, v)
					t.Run(name, func(t *testing.T) {
						x := f.GrossUp(v)
						for i := 0; i < f.Hops; i++ {
							x, _ = f.Deduct(x)
						}
						if !approxEqual(x, v) {
							t.Errorf("round trip got %v, want %v", x, v)
						}
					})
				}
			}
		}
	}
}

func TestFeeSchedule_GrossUpMatchesClosedForms(t *testing.T) {
	flat := FeeSchedule{Base: 1, Proportional: 0, Hops: 3}
	if got := flat.GrossUp(10); got != 13 {
		t.Errorf("flat gross-up expected 13, got %v", got)
	}

	prop := FeeSchedule{Base: 0, Proportional: 0.5, Hops: 2}
	if got := prop.GrossUp(10); !approxEqual(got, 40) {
		t.Errorf("proportional gross-up expected 40, got %v", got)
	}
}

func TestFeeSchedule_Deduct(t *testing.T) {
	f := FeeSchedule{Base: 2, Proportional: 0.1}
	net, fee := f.Deduct(100)
	if fee != 12 || net != 88 {
		t.Errorf("Deduct(100) = (%v, %v), want (88, 12)", net, fee)
	}
}

func TestNewFeeSchedule(t *testing.T) {
	f := NewFeeSchedule(domain.NetworkConfig{
		RelayTransactionFee:        0.1,
		TransactionProportionalFee: 0.02,
		HopsNumber:                 3,
	})
	if f.Base != 0.1 || f.Proportional != 0.02 || f.Hops != 5 {
		t.Errorf("unexpected schedule %+v", f)
	}
}
