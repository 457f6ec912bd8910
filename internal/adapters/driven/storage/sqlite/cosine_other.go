//go:build !arm64

package sqlite

import "github.com/viant/vec/search"

// cosineDistanceWithMagnitude calls the vec library's exported method, which
// is named CosineDistanceWithMagnitudesNeon on non-arm64 platforms.
func cosineDistanceWithMagnitude(v search.Float32s, vec []float32, m1, m2 float32) float32 {
	return v.CosineDistanceWithMagnitudesNeon(vec, m1, m2)
}
