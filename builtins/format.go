package builtins

import (
	"strconv"
	"strings"
)

// Format expands a printf-style format using the frame's arguments starting
// at index first. Supported verbs:
//
//	%s  string
//	%d  integer (also %i)
//	%f  float
//	%v  vector, as three space-separated floats
//	%e  entity number
//	%%  literal percent
//
// Unknown verbs are copied through. Running out of arguments is an error.
func Format(f *Frame, format string, first int) (string, error) {
	var b strings.Builder
	b.Grow(len(format) + 16)
	arg := first

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case '%':
			b.WriteByte('%')
		case 's':
			s, err := f.ArgString(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			arg++
		case 'd', 'i':
			v, err := f.ArgInt(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatInt(int64(v), 10))
			arg++
		case 'f':
			v, err := f.ArgFloat(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(formatFloat(v))
			arg++
		case 'v':
			v, err := f.ArgVector(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(formatFloat(v[0]))
			b.WriteByte(' ')
			b.WriteString(formatFloat(v[1]))
			b.WriteByte(' ')
			b.WriteString(formatFloat(v[2]))
			arg++
		case 'e':
			ent, err := f.ArgEntity(arg)
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatInt(int64(ent), 10))
			arg++
		default:
			b.WriteByte('%')
			b.WriteByte(format[i])
		}
	}
	return b.String(), nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 6, 32)
}
