// SPDX-License-Identifier: Apache-2.0

package chihiros

import (
	"fmt"
	"math"
)

// DoseAmount is the wire representation of a millilitre quantity: 25.6 mL
// buckets plus a 0.1 mL remainder. One bucket is exactly 256 tenths of a
// millilitre, so all arithmetic here is exact integer math on tenths.
type DoseAmount struct {
	Bucket    uint8
	Remainder uint8
}

const (
	minDoseTenths   = 2    // 0.2 mL
	maxDoseTenths   = 9999 // 999.9 mL
	tenthsPerBucket = 256  // 25.6 mL
)

// SplitDose converts a millilitre quantity to its wire encoding. The input
// is quantized to 0.1 mL (round half up) before splitting, and must fall in
// [0.2, 999.9] mL after quantization.
func SplitDose(ml float64) (DoseAmount, error) {
	if math.IsNaN(ml) || math.IsInf(ml, 0) {
		return DoseAmount{}, fmt.Errorf("invalid dose amount: %v", ml)
	}
	tenths := int(math.Floor(ml*10 + 0.5))
	if tenths < minDoseTenths || tenths > maxDoseTenths {
		return DoseAmount{}, fmt.Errorf("dose %.1f mL out of range %.1f..%.1f",
			ml, MinDoseMilliliters, MaxDoseMilliliters)
	}
	return splitTenths(tenths), nil
}

// splitTenths splits a tenths-of-a-millilitre count without range checking.
// An exact multiple of 25.6 mL lands on (bucket, 0), never (bucket-1, 256).
func splitTenths(tenths int) DoseAmount {
	return DoseAmount{
		Bucket:    uint8(tenths / tenthsPerBucket),
		Remainder: uint8(tenths % tenthsPerBucket),
	}
}

// Milliliters is the inverse of SplitDose.
func (d DoseAmount) Milliliters() float64 {
	return float64(d.tenths()) / 10
}

func (d DoseAmount) tenths() int {
	return int(d.Bucket)*tenthsPerBucket + int(d.Remainder)
}

func (d DoseAmount) String() string {
	return fmt.Sprintf("%.1f mL", d.Milliliters())
}
