package reflection

import (
	"math"
	"strconv"
	"strings"
)

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func skipSpace(s string) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// scanFloat parses the longest float prefix of s after leading whitespace.
// It returns the value and the number of bytes consumed; 0 means no number
// was found. The grammar is C-locale: no digit grouping, '.' as separator.
func scanFloat(s string) (float32, int) {
	start := skipSpace(s)
	i := start
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	for _, word := range []string{"infinity", "inf", "nan"} {
		if len(s)-i >= len(word) && strings.EqualFold(s[i:i+len(word)], word) {
			end := i + len(word)
			v, err := strconv.ParseFloat(s[start:end], 32)
			if err != nil {
				return 0, 0
			}
			return float32(v), end
		}
	}

	mant := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	digits := i - mant
	if digits == 0 || (digits == 1 && s[mant] == '.') {
		return 0, 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}

	v, err := strconv.ParseFloat(s[start:i], 32)
	if err != nil && !isRange(err) {
		return 0, 0
	}
	return float32(v), i
}

// scanInt parses a base-10 integer prefix, saturating at the int32 bounds.
func scanInt(s string) (int32, int) {
	start := skipSpace(s)
	i := start
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	digits := i
	var acc int64
	for i < len(s) && isDigit(s[i]) {
		if acc <= math.MaxInt32+1 {
			acc = acc*10 + int64(s[i]-'0')
		}
		i++
	}
	if i == digits {
		return 0, 0
	}
	if neg {
		acc = -acc
	}
	return int32(max(math.MinInt32, min(math.MaxInt32, acc))), i
}

func isRange(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// ParseFloat is the permissive float parse used for untyped text: the
// longest numeric prefix is used, and text with none yields 0.
func ParseFloat(text string) float32 {
	v, _ := scanFloat(text)
	return v
}

// ParseInt is the permissive integer parse used for untyped text.
func ParseInt(text string) int32 {
	v, _ := scanInt(text)
	return v
}

// ParseVector fills components of prev from whitespace-separated floats,
// stopping at the first component that fails to parse.
func ParseVector(text string, prev [3]float32) [3]float32 {
	rest := text
	for i := range prev {
		v, n := scanFloat(rest)
		if n == 0 {
			break
		}
		prev[i] = v
		rest = rest[n:]
	}
	return prev
}
