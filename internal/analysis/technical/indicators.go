// Package technical computes the indicators consumed by the technical
// analysis agent: Wilder's RSI, an SMA-seeded EMA, and Wilder's ADX, all
// operating on daily OHLCV bars. Each indicator returns a slice aligned with
// the input bars; positions inside the warm-up window are NaN.
package technical

import (
	"fmt"
	"math"

	"github.com/quantfold/stocksense/internal/datasource"
	"github.com/quantfold/stocksense/pkg/models"
)

// RSI calculates the Relative Strength Index with Wilder's smoothing.
// Default period is 14. Values before index `period` are NaN.
func RSI(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	rsi := nanSlice(n)
	if n < period+1 {
		return rsi
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}

	return rsi
}

// EMA calculates the exponential moving average of closes, seeded with the
// simple average of the first `period` values. Values before index period-1
// are NaN.
func EMA(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 50
	}
	n := len(candles)
	ema := nanSlice(n)
	if n < period {
		return ema
	}

	k := 2.0 / float64(period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	ema[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		ema[i] = candles[i].Close*k + ema[i-1]*(1-k)
	}

	return ema
}

// ADX calculates the Average Directional Index with Wilder's smoothing.
// Default period is 14. The first defined value sits at index 2*period-1
// (one smoothing pass for the directional movement, a second for DX).
func ADX(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	adx := nanSlice(n)
	if n < 2*period {
		return adx
	}

	// True range and directional movement, defined from index 1.
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))

		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// Wilder smoothing: seed with the sum of the first `period` values,
	// then carry forward.
	var smTR, smPlus, smMinus float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := nanSlice(n)
	dx[period] = dxValue(smPlus, smMinus, smTR)
	for i := period + 1; i < n; i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlus = smPlus - smPlus/float64(period) + plusDM[i]
		smMinus = smMinus - smMinus/float64(period) + minusDM[i]
		dx[i] = dxValue(smPlus, smMinus, smTR)
	}

	// ADX: Wilder average of DX, seeded with the simple mean of the first
	// `period` DX values.
	sum := 0.0
	for i := period; i < 2*period; i++ {
		sum += dx[i]
	}
	adx[2*period-1] = sum / float64(period)
	for i := 2 * period; i < n; i++ {
		adx[i] = (adx[i-1]*float64(period-1) + dx[i]) / float64(period)
	}

	return adx
}

// LatestSnapshot computes RSI(14), EMA(50), and ADX(14) over the bars, drops
// every row where any indicator is still in warm-up, and returns the last
// remaining row. An empty series, or one too short to leave any row, yields
// datasource.ErrNoHistoricalData.
func LatestSnapshot(candles []models.OHLCV) (models.IndicatorSnapshot, error) {
	if len(candles) == 0 {
		return models.IndicatorSnapshot{}, fmt.Errorf("%w: empty price series", datasource.ErrNoHistoricalData)
	}

	rsi := RSI(candles, 14)
	ema := EMA(candles, 50)
	adx := ADX(candles, 14)

	last := len(candles) - 1
	if math.IsNaN(rsi[last]) || math.IsNaN(ema[last]) || math.IsNaN(adx[last]) {
		return models.IndicatorSnapshot{}, fmt.Errorf("%w: %d bars is not enough for indicator warm-up",
			datasource.ErrNoHistoricalData, len(candles))
	}

	return models.IndicatorSnapshot{
		RSI14: rsi[last],
		EMA50: ema[last],
		ADX14: adx[last],
		Close: candles[last].Close,
	}, nil
}

// --- helpers ---

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func dxValue(smPlus, smMinus, smTR float64) float64 {
	if smTR == 0 {
		return 0
	}
	plusDI := 100 * smPlus / smTR
	minusDI := 100 * smMinus / smTR
	if plusDI+minusDI == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
}
