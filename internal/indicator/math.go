// Package indicator computes technical indicators over candle series and
// persists one immutable snapshot per computation tick.
//
// All functions in this file are pure: given the same ordered series they
// produce bit-identical results. Series are oldest-first throughout.
package indicator

import "math"

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// emaSeries returns the exponential moving average series, seeded with the
// SMA of the first period values. The returned slice is aligned so that
// index i corresponds to values[i+period-1].
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)

	prev := seed
	for _, v := range values[period:] {
		prev = (v-prev)*k + prev
		out = append(out, prev)
	}
	return out
}

// EMA returns the exponential moving average of the series.
func EMA(values []float64, period int) (float64, bool) {
	series := emaSeries(values, period)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// RSI returns the relative strength index with Wilder smoothing.
func RSI(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) <= period {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// MACD returns the MACD(12,26,9) line, signal line and histogram.
func MACD(values []float64) (macd, signal, hist float64, ok bool) {
	const fast, slow, signalPeriod = 12, 26, 9
	if len(values) < slow+signalPeriod {
		return 0, 0, 0, false
	}

	fastSeries := emaSeries(values, fast)
	slowSeries := emaSeries(values, slow)

	// Align: slowSeries[i] pairs with fastSeries[i + slow - fast].
	offset := slow - fast
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := emaSeries(macdLine, signalPeriod)
	if len(signalSeries) == 0 {
		return 0, 0, 0, false
	}

	macd = macdLine[len(macdLine)-1]
	signal = signalSeries[len(signalSeries)-1]
	return macd, signal, macd - signal, true
}

// Bollinger returns the Bollinger Bands (period, k standard deviations)
// plus the bandwidth and %B of the last value.
func Bollinger(values []float64, period int, k float64) (upper, middle, lower, width, percentB float64, ok bool) {
	if period <= 0 || len(values) < period {
		return 0, 0, 0, 0, 0, false
	}

	window := values[len(values)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)

	variance := 0.0
	for _, v := range window {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(period))

	upper = mean + k*std
	lower = mean - k*std
	middle = mean

	if middle != 0 {
		width = (upper - lower) / middle * 100
	}
	if band := upper - lower; band != 0 {
		percentB = (values[len(values)-1] - lower) / band
	}
	return upper, middle, lower, width, percentB, true
}

// trueRanges returns the true range series. Element i corresponds to bar i+1.
func trueRanges(high, low, close []float64) []float64 {
	out := make([]float64, 0, len(high)-1)
	for i := 1; i < len(high); i++ {
		tr := high[i] - low[i]
		if hc := math.Abs(high[i] - close[i-1]); hc > tr {
			tr = hc
		}
		if lc := math.Abs(low[i] - close[i-1]); lc > tr {
			tr = lc
		}
		out = append(out, tr)
	}
	return out
}

// wilderSmooth applies Wilder's smoothing to a series.
func wilderSmooth(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	prev := seed
	for _, v := range values[period:] {
		prev = (prev*float64(period-1) + v) / float64(period)
		out = append(out, prev)
	}
	return out
}

// ATR returns the average true range with Wilder smoothing.
func ATR(high, low, close []float64, period int) (float64, bool) {
	if period <= 0 || len(high) <= period {
		return 0, false
	}
	smoothed := wilderSmooth(trueRanges(high, low, close), period)
	if len(smoothed) == 0 {
		return 0, false
	}
	return smoothed[len(smoothed)-1], true
}

// OBV returns the on-balance volume of the series.
func OBV(close, volume []float64) (float64, bool) {
	if len(close) == 0 || len(close) != len(volume) {
		return 0, false
	}
	obv := 0.0
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			obv += volume[i]
		case close[i] < close[i-1]:
			obv -= volume[i]
		}
	}
	return obv, true
}

// ADX returns the average directional index plus the +DI/-DI components,
// all with Wilder smoothing.
func ADX(high, low, close []float64, period int) (adx, plusDI, minusDI float64, ok bool) {
	if period <= 0 || len(high) < 2*period+1 {
		return 0, 0, 0, false
	}

	n := len(high) - 1
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i <= n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	trSmooth := wilderSmooth(trueRanges(high, low, close), period)
	plusSmooth := wilderSmooth(plusDM, period)
	minusSmooth := wilderSmooth(minusDM, period)

	dx := make([]float64, 0, len(trSmooth))
	var lastPlusDI, lastMinusDI float64
	for i := range trSmooth {
		if trSmooth[i] == 0 {
			dx = append(dx, 0)
			continue
		}
		pdi := 100 * plusSmooth[i] / trSmooth[i]
		mdi := 100 * minusSmooth[i] / trSmooth[i]
		lastPlusDI, lastMinusDI = pdi, mdi

		if sum := pdi + mdi; sum != 0 {
			dx = append(dx, 100*math.Abs(pdi-mdi)/sum)
		} else {
			dx = append(dx, 0)
		}
	}

	adxSeries := wilderSmooth(dx, period)
	if len(adxSeries) == 0 {
		return 0, 0, 0, false
	}
	return adxSeries[len(adxSeries)-1], lastPlusDI, lastMinusDI, true
}
