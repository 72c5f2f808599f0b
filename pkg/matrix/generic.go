package matrix

import "golang.org/x/exp/constraints"

func inRange[T constraints.Integer](i, n T) bool {
	return i >= 0 && i < n
}

func zeroFill[T constraints.Float](v []T) {
	for i := range v {
		v[i] = 0
	}
}

// searchSorted returns the position of x in the ascending slice s, or -1.
func searchSorted[T constraints.Ordered](s []T, x T) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s[mid] < x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s) && s[lo] == x {
		return lo
	}
	return -1
}
