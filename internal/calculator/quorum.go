package calculator

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)

	// defaultQuorum is exclusive: more than half the members must be present.
	defaultQuorum = decimal.NewFromInt(50)
)

// AttendanceRate returns present / total * 100, rounded to two decimal places.
// A group with no members has a rate of zero.
func AttendanceRate(present, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(present)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// QuorumMet decides quorum from the exact ratio present*100/total. The rounded
// AttendanceRate is for display only.
//
// Policy:
// - no configured threshold: rate > 50 (strict majority)
// - configured threshold: rate >= threshold
// - a group with no members never has quorum
func QuorumMet(present, total int, threshold decimal.NullDecimal) bool {
	if total <= 0 {
		return false
	}
	// present*100 compared with threshold*total avoids a repeating quotient.
	scaled := decimal.NewFromInt(int64(present)).Mul(hundred)
	if threshold.Valid {
		return scaled.GreaterThanOrEqual(threshold.Decimal.Mul(decimal.NewFromInt(int64(total))))
	}
	return scaled.GreaterThan(defaultQuorum.Mul(decimal.NewFromInt(int64(total))))
}
