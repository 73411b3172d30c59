//go:build 386 || arm || mips || mipsle

package argon

import (
	"fmt"
	"math"
)

func safeCastUint8(x int) (uint8, error) {
	if x < 0 || x > math.MaxUint8 {
		return 0, fmt.Errorf("argon: %d does not fit in a uint8", x)
	}

	return uint8(x), nil
}

// int is 32 bits wide here, so only the sign needs checking
func safeCastUint32(x int) (uint32, error) {
	if x < 0 {
		return 0, fmt.Errorf("argon: %d does not fit in a uint32", x)
	}

	return uint32(x), nil
}
