package calc

import "math"

// Headroom bounds in percent. Operators adjust headroom in steps of 10.
const (
	MinHeadroomPct  = 20
	MaxHeadroomPct  = 100
	HeadroomPctStep = 10
)

const bytesPerGb = 1 << 30

// ClampHeadroom snaps a headroom percentage to the nearest permitted step
// and clamps it into the operator-adjustable range.
func ClampHeadroom(pct int) int {
	snapped := int(math.Round(float64(pct)/HeadroomPctStep)) * HeadroomPctStep
	if snapped < MinHeadroomPct {
		return MinHeadroomPct
	}
	if snapped > MaxHeadroomPct {
		return MaxHeadroomPct
	}
	return snapped
}

// RequiredDiskGb estimates the appliance disk needed for a set of VMs:
// total VM storage plus headroom, rounded to whole GB and clamped to
// [minDiskGb, maxDiskGb]. Zero VMs yields the configured minimum, not zero.
func RequiredDiskGb(vmStorageBytes uint64, vmCount int, headroomPct, minDiskGb, maxDiskGb int) int {
	if vmCount == 0 {
		return minDiskGb
	}

	headroomPct = ClampHeadroom(headroomPct)
	required := float64(vmStorageBytes) * (1 + float64(headroomPct)/100)
	gb := int(math.Round(required / bytesPerGb))

	if gb < minDiskGb {
		return minDiskGb
	}
	if maxDiskGb > 0 && gb > maxDiskGb {
		return maxDiskGb
	}
	return gb
}
