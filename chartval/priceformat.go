// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package chartval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Precision returns the number of decimal places used to display a price.
// Cheap coins need more digits than majors to show any movement.
func Precision(price float64) int {
	p := math.Abs(price)
	switch {
	case math.IsNaN(p) || math.IsInf(p, 0) || p == 0 || p >= 1:
		return 2
	case p >= 0.01:
		return 4
	case p >= 0.0001:
		return 6
	default:
		return 8
	}
}

func FormatPrice(price float64) string {
	return FormatPriceWithPrecision(price, Precision(price))
}

func FormatPriceWithPrecision(price float64, precision int) string {
	if !IsFinite(price) {
		return "-"
	}
	d := ConvertFloatToDecimal(price, 64)
	if d == nil {
		return strconv.FormatFloat(price, 'f', precision, 64)
	}
	// Call Quantize twice, otherwise one digit may be missing, see https://github.com/ericlagergren/decimal/issues/151
	d.Quantize(precision).Quantize(precision)
	if d.IsNaN(0) {
		// Precision of the decimal context exceeded, fall back to float formatting.
		return strconv.FormatFloat(price, 'f', precision, 64)
	}
	// we do not want negative zero on our label
	if d.Sign() == 0 {
		d.Abs(d)
	}
	return fmt.Sprintf("%.*f", precision, d)
}

// WidestPriceTemplate returns a string at least as wide as any price of similar magnitude,
// to be measured once for a label that should not change its width.
func WidestPriceTemplate(price float64) string {
	s := FormatPrice(price)
	var b strings.Builder
	b.Grow(len(s) + 1)
	b.WriteByte('8')
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte('8')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
