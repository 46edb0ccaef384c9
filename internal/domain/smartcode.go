package domain

import (
	"regexp"
	"strings"
)

// SmartCodePrefix starts every well-formed smart code.
const SmartCodePrefix = "HERA."

var smartCodePattern = regexp.MustCompile(`^HERA\.[A-Z0-9_]+(\.[A-Z0-9_]+)*\.[vV][0-9]+$`)

// HasSmartCodePrefix reports whether code is non-empty and starts with HERA.
func HasSmartCodePrefix(code string) bool {
	return strings.HasPrefix(code, SmartCodePrefix)
}

// ValidSmartCode checks the full dotted form, e.g. HERA.FURN.PROD.CHAIR.v1.
func ValidSmartCode(code string) bool {
	return smartCodePattern.MatchString(code)
}

// ProductionSmartCode rewrites the .TRIAL. segment of a progressive smart
// code to .PROD.; codes without the segment are returned unchanged.
func ProductionSmartCode(code string) string {
	return strings.ReplaceAll(code, ".TRIAL.", ".PROD.")
}
