package shipping

import "sort"

type SizeClass string

const (
	SizeS         SizeClass = "S"
	SizeM         SizeClass = "M"
	SizeL         SizeClass = "L"
	SizeXL        SizeClass = "XL"
	SizeOversized SizeClass = "OVERSIZED"
)

var sizeLimits = []struct {
	class   SizeClass
	x, y, z int64
}{
	{SizeS, 260, 170, 80},
	{SizeM, 300, 200, 150},
	{SizeL, 400, 270, 180},
	{SizeXL, 530, 260, 220},
}

// Classify maps package dimensions in millimetres to the carrier size class.
// The order of the arguments does not matter.
func Classify(x, y, z int64) SizeClass {
	sizes := []int64{x, y, z}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	for _, l := range sizeLimits {
		if sizes[0] <= l.x && sizes[1] <= l.y && sizes[2] <= l.z {
			return l.class
		}
	}
	return SizeOversized
}
