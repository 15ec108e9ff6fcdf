package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Longest suffixes first so "mb" is not mistaken for "b".
var sizeSuffixes = []struct {
	suffix string
	mul    int64
}{
	{"kib", 1 << 10}, {"mib", 1 << 20}, {"gib", 1 << 30}, {"tib", 1 << 40},
	{"kb", 1 << 10}, {"mb", 1 << 20}, {"gb", 1 << 30}, {"tb", 1 << 40},
	{"k", 1 << 10}, {"m", 1 << 20}, {"g", 1 << 30}, {"t", 1 << 40},
	{"b", 1},
}

// ParseSize parses human friendly byte sizes such as "64mb", "1.5g" or
// "4096". Units are powers of two.
func ParseSize(s string) (int64, error) {
	str := strings.TrimSpace(strings.ToLower(s))
	if str == "" {
		return 0, fmt.Errorf("invalid size %q: empty", s)
	}

	mul := int64(1)
	for _, suf := range sizeSuffixes {
		if strings.HasSuffix(str, suf.suffix) {
			str = strings.TrimSpace(strings.TrimSuffix(str, suf.suffix))
			mul = suf.mul
			break
		}
	}

	if n, err := strconv.ParseInt(str, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("invalid size %q: negative", s)
		}
		return n * mul, nil
	}

	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	return int64(v * float64(mul)), nil
}

// FormatSize renders n bytes with the largest unit that keeps the number at
// or above one.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
