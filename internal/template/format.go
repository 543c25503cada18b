package template

import "strings"

// strftimeSpecifiers are the conversion characters accepted after '%'.
const strftimeSpecifiers = "aAbBcCdDeFgGhHIjklmMnprRSTtuUVwWxXyYzZ%"

// validFormat reports whether every '%' in layout introduces a known
// specifier. A trailing lone '%' is invalid.
func validFormat(layout string) bool {
	for i := 0; i < len(layout); i++ {
		if layout[i] != '%' {
			continue
		}
		if i+1 >= len(layout) {
			return false
		}
		i++
		if !strings.ContainsRune(strftimeSpecifiers, rune(layout[i])) {
			return false
		}
	}
	return true
}
