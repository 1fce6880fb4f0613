package features

import (
	"math"

	"QuantLab/internal/domain/models"
)

// RollingStd computes the population standard deviation (divide by window,
// not window-1) of every trailing window, stamped with the window's last
// timestamp. window <= 1 or fewer than window values yields no points;
// otherwise the result has len(values)-window+1 entries.
func RollingStd(values []models.ReturnPoint, window int) []models.VolatilityPoint {
	if window <= 1 || len(values) < window {
		return []models.VolatilityPoint{}
	}

	n := float64(window)
	out := make([]models.VolatilityPoint, 0, len(values)-window+1)
	for i := window - 1; i < len(values); i++ {
		slice := values[i-window+1 : i+1]

		sum := 0.0
		for _, v := range slice {
			sum += v.Value
		}
		mean := sum / n

		ss := 0.0
		for _, v := range slice {
			d := v.Value - mean
			ss += d * d
		}
		out = append(out, models.VolatilityPoint{
			Timestamp: values[i].Timestamp,
			Value:     math.Sqrt(ss / n),
		})
	}
	return out
}
