// Package iecsize parses and formats byte counts using IEC binary units
// only (KiB, MiB, GiB, ...), rejecting decimal (SI) suffixes like "KB" so
// that --buffer-size and --max-message-size are unambiguous (spec §4.12).
package iecsize

import (
	"fmt"
	"strconv"
	"strings"
)

var units = []struct {
	suffix string
	scale  int64
}{
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"B", 1},
}

// Parse converts a string like "256 KiB" or "1MiB" into a byte count.
// Decimal-unit suffixes (KB, MB, ...) are rejected with an error naming
// the offending suffix, since they're ambiguous with IEC units at this
// scale and spec.md requires rejecting them outright.
func Parse(s string) (int64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size expression")
	}
	for _, dec := range []string{"KB", "MB", "GB", "TB"} {
		if strings.HasSuffix(s, dec) {
			return 0, fmt.Errorf("decimal size suffix %q is not accepted; use IEC binary units (KiB, MiB, GiB, TiB): %q", dec, orig)
		}
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			numPart := strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			if numPart == "" {
				return 0, fmt.Errorf("missing numeric magnitude in size expression %q", orig)
			}
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid numeric magnitude in size expression %q: %w", orig, err)
			}
			if n < 0 {
				return 0, fmt.Errorf("negative size expression %q", orig)
			}
			return int64(n * float64(u.scale)), nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized size expression %q (expected a bare integer or an IEC suffix like KiB/MiB/GiB)", orig)
	}
	return n, nil
}

// Format renders n bytes in the largest IEC unit not larger than n: as
// an integer when n is an exact multiple of that unit, otherwise with
// two decimal digits (1536 renders as "1.50 KiB").
func Format(n int64) string {
	for _, u := range units {
		if u.scale == 1 {
			continue
		}
		if n >= u.scale {
			v := float64(n) / float64(u.scale)
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d %s", int64(v), u.suffix)
			}
			return fmt.Sprintf("%.2f %s", v, u.suffix)
		}
	}
	return fmt.Sprintf("%d B", n)
}
