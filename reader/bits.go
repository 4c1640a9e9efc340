package reader

import "math"

func doubleFromBits(bits uint64) float64 { return math.Float64frombits(bits) }

func float32FromBits(bits uint32) float32 { return math.Float32frombits(bits) }
