package forecast

// linearFit fits y = slope·x + intercept by ordinary least squares with
// x = 0..n-1. Deviations are taken from the means so a constant series
// yields a slope of exactly zero.
func linearFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	xMean := (n - 1) / 2
	yMean := mean(ys)

	var sxy, sxx float64
	for i, y := range ys {
		dx := float64(i) - xMean
		sxy += dx * (y - yMean)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, yMean
	}
	slope = sxy / sxx
	intercept = yMean - slope*xMean
	return slope, intercept
}

func mean(ys []float64) float64 {
	var sum float64
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

// populationVariance is the mean squared deviation from the mean.
func populationVariance(ys []float64) float64 {
	m := mean(ys)
	var ss float64
	for _, y := range ys {
		d := y - m
		ss += d * d
	}
	return ss / float64(len(ys))
}
