package enrich

import "strings"

// AddressCanonicalizer normalizes a free-form postal address to one
// comparable standard form. Implementations must be idempotent:
// canon(canon(a)) == canon(a).
type AddressCanonicalizer func(address string) string

// suffixForms maps spelled-out street suffixes and unit designators to
// their USPS-style abbreviations.
var suffixForms = map[string]string{
	"street":    "St",
	"avenue":    "Ave",
	"boulevard": "Blvd",
	"road":      "Rd",
	"drive":     "Dr",
	"lane":      "Ln",
	"court":     "Ct",
	"place":     "Pl",
	"terrace":   "Ter",
	"circle":    "Cir",
	"highway":   "Hwy",
	"parkway":   "Pkwy",
	"suite":     "Ste",
	"apartment": "Apt",
	"unit":      "Unit",
	"north":     "N",
	"south":     "S",
	"east":      "E",
	"west":      "W",
}

// CanonicalAddress is the default in-process canonicalizer: whitespace is
// collapsed, words are title-cased, and common suffixes/directionals are
// abbreviated. It stands in for an external address service and is
// deliberately conservative; anything it doesn't recognize passes through.
func CanonicalAddress(address string) string {
	words := strings.Fields(address)
	for i, w := range words {
		trailing := ""
		if strings.HasSuffix(w, ",") || strings.HasSuffix(w, ".") {
			trailing = ","
			if strings.HasSuffix(w, ".") {
				trailing = ""
			}
			w = w[:len(w)-1]
		}

		lower := strings.ToLower(w)
		if abbr, ok := suffixForms[lower]; ok {
			words[i] = abbr + trailing
			continue
		}
		words[i] = titleWord(w) + trailing
	}
	return strings.Join(words, " ")
}

// titleWord upper-cases the first letter only, leaving embedded digits and
// already-capitalized forms (unit numbers, "2B") alone.
func titleWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(w)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
		for i := 1; i < len(r); i++ {
			if r[i] >= 'A' && r[i] <= 'Z' {
				r[i] = r[i] - 'A' + 'a'
			}
		}
		return string(r)
	}
	if isAllUpper(r) && len(r) > 2 {
		for i := 1; i < len(r); i++ {
			r[i] = r[i] - 'A' + 'a'
		}
		return string(r)
	}
	return w
}

func isAllUpper(r []rune) bool {
	for _, c := range r {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return len(r) > 0
}
