// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"fmt"
	"math"
)

// Normalize returns v scaled to unit length. A zero vector is returned as zeros.
func Normalize(v []float32) []float32 {
	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	magnitude = math.Sqrt(magnitude)
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// FitDimensions returns v with exactly dimensions components.
// Longer vectors are truncated and re-normalized; vectors of the right size are
// returned unchanged.
func FitDimensions(v []float32, dimensions int) ([]float32, error) {
	if dimensions <= 0 {
		return nil, ErrInvalidDimensions
	}
	switch {
	case len(v) == dimensions:
		return v, nil
	case len(v) < dimensions:
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVectorTooShort, len(v), dimensions)
	default:
		return Normalize(v[:dimensions]), nil
	}
}

// FitAll applies FitDimensions to every vector of a batch of size want.
func FitAll(vectors [][]float32, want, dimensions int) ([][]float32, error) {
	if len(vectors) != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVectorCountMismatch, len(vectors), want)
	}
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		fitted, err := FitDimensions(v, dimensions)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = fitted
	}
	return out, nil
}
