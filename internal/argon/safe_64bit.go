//go:build amd64 || arm64 || mips64 || mips64le || ppc64 || ppc64le || riscv64 || s390x || loong64

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

func safeCastUint32(x int) (uint32, error) {
	if x < 0 || x > math.MaxUint32 {
		return 0, fmt.Errorf("argon: %d does not fit in a uint32", x)
	}

	return uint32(x), nil
}
