// Package progress renders session and download progress.
package progress

import (
	"fmt"
)

const (
	percentageMultiplier = 100 // Multiplier to convert decimal to percentage
)

// CalculatePercentage formats value/total as a percentage with two decimals, or
// "0.00%" when total is zero.
func CalculatePercentage(value, total float64) string {
	if total == 0 {
		return "0.00%"
	}

	percentage := (value / total) * percentageMultiplier

	return fmt.Sprintf("%.2f%%", percentage)
}
