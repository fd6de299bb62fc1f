package ir

import "strings"

// Characters that may never appear in names: they delimit values in the
// textual form.
const reservedChars = `()<>,"`

func nameChar(c byte) bool {
	return c >= 0x21 && c <= 0x7E && strings.IndexByte(reservedChars, c) < 0
}

// IsValidSVarName reports whether s is a legal column or vocabulary
// element name: non-empty printable ASCII, reserved characters excluded,
// interior spaces allowed but no leading or trailing space.
func IsValidSVarName(s string) bool {
	if s == "" || s[0] == ' ' || s[len(s)-1] == ' ' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && !nameChar(s[i]) {
			return false
		}
	}
	return true
}

// IsValidNominal uses the same grammar as IsValidSVarName.
func IsValidNominal(s string) bool {
	return IsValidSVarName(s)
}

// IsValidPredName reports whether s is a legal predicate name: like a
// spreadsheet variable name but without any spaces.
func IsValidPredName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !nameChar(s[i]) {
			return false
		}
	}
	return true
}

// IsValidFargName reports whether s is a bracketed formal argument name
// such as "<arg0>".
func IsValidFargName(s string) bool {
	if len(s) < 3 || s[0] != '<' || s[len(s)-1] != '>' {
		return false
	}
	return IsValidPredName(s[1 : len(s)-1])
}

// IsValidQuoteString reports whether s is printable ASCII without '"'.
func IsValidQuoteString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E || s[i] == '"' {
			return false
		}
	}
	return true
}

// IsValidTextString reports whether s is 7-bit ASCII without backspace.
func IsValidTextString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F || s[i] == 0x08 {
			return false
		}
	}
	return true
}
