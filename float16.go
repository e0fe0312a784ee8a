package ipv

import (
	"github.com/x448/float16"
)

// f16LookupTable caches the float32 value of every half-precision bit
// pattern so score decoding is a table lookup instead of a conversion
// per value.
var f16LookupTable [65536]float32

func init() {
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}
