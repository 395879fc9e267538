package axle

import (
	"reflect"
	"strings"
)

// unqualifiedTypeName renders a type for diagnostics with package
// qualifiers stripped, including inside generic arguments:
// "axle.Ref[game.Position]" becomes "Ref[Position]".
func unqualifiedTypeName(t reflect.Type) string {
	s := t.String()
	var b strings.Builder
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.':
			start = i + 1
		case '[', ']', ',', ' ', '*':
			b.WriteString(s[start:i])
			b.WriteByte(s[i])
			start = i + 1
		}
	}
	b.WriteString(s[start:])
	return b.String()
}
