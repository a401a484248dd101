package models

import "strings"

// Municipalities served by the system, in display form.
var Municipalities = []string{"Mandaue", "Consolacion", "Lilo-an"}

// NormalizeMunicipality lower-cases, trims and strips hyphens so that
// "Lilo-an", "lilo-an", "Liloan" and "LILOAN" compare equal.
func NormalizeMunicipality(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
}

// SameMunicipality reports whether a and b normalize to the same non-empty name.
func SameMunicipality(a, b string) bool {
	na := NormalizeMunicipality(a)
	return na != "" && na == NormalizeMunicipality(b)
}

// ContactKey maps a free-form municipality name onto the key used by the
// SMS contact table (LILOAN, LACION, MANDAUE). Unknown names are returned
// upper-cased and trimmed.
func ContactKey(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch {
	case strings.Contains(n, "CONSOLACION") || strings.Contains(n, "LACION"):
		return "LACION"
	case strings.Contains(n, "LILO-AN") || strings.Contains(n, "LILOAN"):
		return "LILOAN"
	case strings.Contains(n, "MANDAUE"):
		return "MANDAUE"
	}
	return n
}
