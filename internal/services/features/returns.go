package features

import (
	"errors"
	"fmt"
	"math"

	"QuantLab/internal/domain/models"
)

// ReturnKind selects how period-over-period returns are computed.
type ReturnKind string

const (
	ReturnSimple ReturnKind = "simple"
	ReturnLog    ReturnKind = "log"
)

var ErrUnknownReturnKind = errors.New("unknown return kind")

// ParseReturnKind maps a query value to a ReturnKind.
func ParseReturnKind(s string) (ReturnKind, error) {
	switch ReturnKind(s) {
	case ReturnSimple, ReturnLog:
		return ReturnKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReturnKind, s)
	}
}

// ComputeReturns dispatches to SimpleReturns or LogReturns.
func ComputeReturns(points []models.PricePoint, kind ReturnKind) ([]models.ReturnPoint, error) {
	switch kind {
	case ReturnSimple:
		return SimpleReturns(points), nil
	case ReturnLog:
		return LogReturns(points), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReturnKind, kind)
	}
}

// SimpleReturns computes r_t = C_t / C_{t-1} - 1, stamped at t.
// A zero previous close yields 0 rather than a division by zero.
// The result has len(points)-1 entries, or none for fewer than two points.
func SimpleReturns(points []models.PricePoint) []models.ReturnPoint {
	return pairwise(points, func(prev, cur float64) float64 {
		if prev == 0 {
			return 0
		}
		return cur/prev - 1
	})
}

// LogReturns computes r_t = ln(C_t / C_{t-1}), stamped at t.
// Non-positive closes on either side yield 0.
func LogReturns(points []models.PricePoint) []models.ReturnPoint {
	return pairwise(points, func(prev, cur float64) float64 {
		if prev <= 0 || cur <= 0 {
			return 0
		}
		return math.Log(cur / prev)
	})
}

func pairwise(points []models.PricePoint, f func(prev, cur float64) float64) []models.ReturnPoint {
	if len(points) < 2 {
		return []models.ReturnPoint{}
	}
	out := make([]models.ReturnPoint, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		out = append(out, models.ReturnPoint{
			Timestamp: points[i].Timestamp,
			Value:     f(points[i-1].Close, points[i].Close),
		})
	}
	return out
}
