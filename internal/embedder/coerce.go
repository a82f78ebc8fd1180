package embedder

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/dshills/pagesense/pkg/types"
)

// vectorFields are the conventional wrapper field names, tried in order.
var vectorFields = []string{"embedding", "vector", "values", "data"}

// CoerceVector normalizes any of the known backend payload shapes into a
// plain float32 sequence:
//
//   - a JSON array of numbers
//   - a JSON array of arrays (first row taken)
//   - an object exposing the vector under a conventional field name,
//     itself coerced recursively
//   - a base64 string encoding little-endian float32 values
//
// types.ErrEmbeddingFormat is returned only after exhausting every shape.
func CoerceVector(raw json.RawMessage) ([]float32, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", types.ErrEmbeddingFormat)
	}

	var nums []float64
	if err := json.Unmarshal(raw, &nums); err == nil {
		if len(nums) == 0 {
			return nil, fmt.Errorf("%w: empty vector", types.ErrEmbeddingFormat)
		}
		return toFloat32(nums), nil
	}

	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err == nil {
		if len(rows) == 0 || len(rows[0]) == 0 {
			return nil, fmt.Errorf("%w: empty vector rows", types.ErrEmbeddingFormat)
		}
		return toFloat32(rows[0]), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, field := range vectorFields {
			inner, ok := obj[field]
			if !ok {
				continue
			}
			vec, err := CoerceVector(inner)
			if err == nil {
				return vec, nil
			}
		}
		return nil, fmt.Errorf("%w: no numeric field in object payload", types.ErrEmbeddingFormat)
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if vec, ok := decodeFloat32Blob(encoded); ok {
			return vec, nil
		}
		return nil, fmt.Errorf("%w: string payload is not a float32 blob", types.ErrEmbeddingFormat)
	}

	return nil, fmt.Errorf("%w: unrecognized payload shape", types.ErrEmbeddingFormat)
}

func toFloat32(nums []float64) []float32 {
	out := make([]float32, len(nums))
	for i, n := range nums {
		out[i] = float32(n)
	}
	return out
}

// decodeFloat32Blob interprets a base64 string as packed little-endian
// float32 values, the typed-buffer shape some backends emit.
func decodeFloat32Blob(encoded string) ([]float32, bool) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(blob) == 0 || len(blob)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		f := math.Float32frombits(bits)
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, false
		}
		vec[i] = f
	}
	return vec, true
}
