package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// productSuffixes are product-type words that are not part of a strain name.
var productSuffixes = []string{
	"flower", "bud", "strain", "cannabis",
	"indica", "sativa", "hybrid",
	"concentrate", "extract", "rosin",
}

// NormalizeStrainName canonicalizes a free-text strain name. The lowercase
// form is the persisted lookup key; titleCase produces the display form
// external strain APIs expect. Empty input gives "".
//
//	"OG Kush #18"       -> "og kush 18"
//	"Blue Dream flower" -> "blue dream"
func NormalizeStrainName(name string, titleCase bool) string {
	name = strings.ToLower(name)

	// product words only go when they touch other text through a space
	for _, suffix := range productSuffixes {
		name = strings.ReplaceAll(name, " "+suffix, "")
		name = strings.ReplaceAll(name, suffix+" ", "")
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}
	name = strings.Join(strings.Fields(b.String()), " ")

	if titleCase {
		return cases.Title(language.English).String(name)
	}
	return name
}

// StrainStub keeps only the lowercase ASCII letters and digits of name.
// It is the key of the alias table.
func StrainStub(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
