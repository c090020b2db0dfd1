package intern

import (
	"strings"

	"github.com/wippyai/qcvm-bridge/errors"
)

// MaxInfoString is the default bound on text that needs unescaping.
const MaxInfoString = 512

// Unescape decodes the field-value escape syntax: `\\` is a backslash and
// `\n` a newline; any other backslash sequence is kept as written. Text with
// no backslash is returned untouched. Text with escapes longer than max bytes
// and a trailing lone backslash are rejected.
func Unescape(value string, max int) (string, error) {
	if !strings.Contains(value, `\`) {
		return value, nil
	}
	if len(value) > max {
		return "", errors.New(errors.PhaseIntern, errors.KindMalformedInput).
			Value(len(value)).
			Detail("escaped string of %d bytes exceeds %d", len(value), max).
			Build()
	}

	var b strings.Builder
	b.Grow(len(value))

	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\\' {
			if i+1 >= len(value) {
				return "", errors.MalformedInput(errors.PhaseIntern, "bad string: trailing backslash")
			}
			switch value[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}
