package indicator

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func rampSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		want   float64
		ok     bool
	}{
		{"basic window", []float64{1, 2, 3, 4, 5}, 3, 4, true},
		{"full series", []float64{2, 4, 6}, 3, 4, true},
		{"insufficient data", []float64{1, 2}, 3, 0, false},
		{"zero period", []float64{1, 2, 3}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SMA(tt.values, tt.period)
			if ok != tt.ok {
				t.Fatalf("SMA ok = %v, want %v", ok, tt.ok)
			}
			if ok && !almostEqual(got, tt.want) {
				t.Errorf("SMA = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEMASeedsWithSMA(t *testing.T) {
	// Period 3 over 1..5: seed is 2, then 3, then 4.
	got, ok := EMA([]float64{1, 2, 3, 4, 5}, 3)
	if !ok {
		t.Fatal("Expected EMA to succeed")
	}
	if !almostEqual(got, 4) {
		t.Errorf("EMA = %v, want 4", got)
	}
}

func TestEMAInsufficientData(t *testing.T) {
	if _, ok := EMA([]float64{1, 2}, 3); ok {
		t.Error("EMA should fail with fewer values than period")
	}
}

func TestRSIMonotonicUp(t *testing.T) {
	got, ok := RSI(rampSeries(30), 14)
	if !ok {
		t.Fatal("Expected RSI to succeed")
	}
	if !almostEqual(got, 100) {
		t.Errorf("RSI of a strictly rising series = %v, want 100", got)
	}
}

func TestRSIMonotonicDown(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(100 - i)
	}
	got, ok := RSI(values, 14)
	if !ok {
		t.Fatal("Expected RSI to succeed")
	}
	if !almostEqual(got, 0) {
		t.Errorf("RSI of a strictly falling series = %v, want 0", got)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, ok := RSI(rampSeries(14), 14); ok {
		t.Error("RSI needs more values than the period")
	}
}

func TestMACDHistogramIsDifference(t *testing.T) {
	values := rampSeries(100)
	macd, signal, hist, ok := MACD(values)
	if !ok {
		t.Fatal("Expected MACD to succeed")
	}
	if !almostEqual(hist, macd-signal) {
		t.Errorf("Histogram %v should equal macd-signal %v", hist, macd-signal)
	}
}

func TestMACDInsufficientData(t *testing.T) {
	if _, _, _, ok := MACD(rampSeries(30)); ok {
		t.Error("MACD should fail below 35 values")
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = 50
	}
	upper, middle, lower, width, _, ok := Bollinger(values, 20, 2)
	if !ok {
		t.Fatal("Expected Bollinger to succeed")
	}
	if !almostEqual(upper, 50) || !almostEqual(middle, 50) || !almostEqual(lower, 50) {
		t.Errorf("Constant series bands = %v/%v/%v, want all 50", upper, middle, lower)
	}
	if !almostEqual(width, 0) {
		t.Errorf("Constant series width = %v, want 0", width)
	}
}

func TestBollingerBandsOrdered(t *testing.T) {
	upper, middle, lower, _, _, ok := Bollinger(rampSeries(40), 20, 2)
	if !ok {
		t.Fatal("Expected Bollinger to succeed")
	}
	if !(upper > middle && middle > lower) {
		t.Errorf("Bands out of order: upper=%v middle=%v lower=%v", upper, middle, lower)
	}
}

func TestATRConstantRange(t *testing.T) {
	n := 30
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := range high {
		high[i] = 105
		low[i] = 95
		close[i] = 100
	}
	got, ok := ATR(high, low, close, 14)
	if !ok {
		t.Fatal("Expected ATR to succeed")
	}
	if !almostEqual(got, 10) {
		t.Errorf("ATR of constant 10-point range = %v, want 10", got)
	}
}

func TestOBVAccumulates(t *testing.T) {
	close := []float64{10, 11, 10, 10, 12}
	volume := []float64{100, 200, 300, 400, 500}

	// +200 (up), -300 (down), 0 (flat), +500 (up) = 400.
	got, ok := OBV(close, volume)
	if !ok {
		t.Fatal("Expected OBV to succeed")
	}
	if !almostEqual(got, 400) {
		t.Errorf("OBV = %v, want 400", got)
	}
}

func TestOBVMismatchedLengths(t *testing.T) {
	if _, ok := OBV([]float64{1, 2}, []float64{1}); ok {
		t.Error("OBV should fail on mismatched series lengths")
	}
}

func TestADXTrendingSeries(t *testing.T) {
	n := 60
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := range high {
		base := float64(100 + 2*i)
		high[i] = base + 1
		low[i] = base - 1
		close[i] = base
	}

	adx, plusDI, minusDI, ok := ADX(high, low, close, 14)
	if !ok {
		t.Fatal("Expected ADX to succeed")
	}
	if adx < 0 || adx > 100 {
		t.Errorf("ADX = %v, want a value in [0,100]", adx)
	}
	if plusDI <= minusDI {
		t.Errorf("Uptrend should have +DI (%v) above -DI (%v)", plusDI, minusDI)
	}
}

func TestADXInsufficientData(t *testing.T) {
	series := rampSeries(20)
	if _, _, _, ok := ADX(series, series, series, 14); ok {
		t.Error("ADX should fail below 2*period+1 values")
	}
}

func TestIndicatorsAreDeterministic(t *testing.T) {
	values := rampSeries(250)
	first, _ := EMA(values, 200)
	second, _ := EMA(values, 200)
	if first != second {
		t.Error("Same series must produce bit-identical results")
	}
}
