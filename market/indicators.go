package market

// SMA is the simple moving average over the trailing period. With fewer
// prices than the period it averages what is there.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		period = len(prices)
	}

	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// RSI is the relative strength index over the trailing period, 50 when
// there is not enough data to say anything.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	gains := 0.0
	losses := 0.0

	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100
	}

	rs := gains / losses
	return 100 - (100 / (1 + rs))
}

// Trend classifies the latest close against the 20-day SMA and RSI.
func Trend(closes []float64) string {
	if len(closes) < 2 {
		return "neutral"
	}

	price := closes[len(closes)-1]
	sma20 := SMA(closes, 20)
	rsi := RSI(closes, 14)

	bullish := 0
	bearish := 0

	if price > sma20 {
		bullish++
	} else {
		bearish++
	}

	if rsi > 55 {
		bullish++
	} else if rsi < 45 {
		bearish++
	}

	if closes[len(closes)-1] > closes[len(closes)-2] {
		bullish++
	} else {
		bearish++
	}

	switch {
	case bullish > bearish:
		return "bullish"
	case bearish > bullish:
		return "bearish"
	default:
		return "neutral"
	}
}
