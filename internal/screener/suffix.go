package screener

import "strings"

// SecurityClass is the closed set of ticker suffix classifications.
type SecurityClass string

const (
	ClassCommon    SecurityClass = "common"
	ClassWarrant   SecurityClass = "warrant"
	ClassUnit      SecurityClass = "unit"
	ClassPreferred SecurityClass = "preferred"
	ClassRights    SecurityClass = "rights"
)

// suffixClasses maps ticker suffix indicators to their class. Longer
// suffixes are listed first so "WS" wins over "S"-less "W". The
// separator (".", "-", or none) is handled by classifySuffix.
var suffixClasses = []struct {
	suffix string
	class  SecurityClass
}{
	{"WS", ClassWarrant},
	{"WT", ClassWarrant},
	{"PR", ClassPreferred},
	{"W", ClassWarrant},
	{"U", ClassUnit},
	{"R", ClassRights},
}

// ClassifySecurity maps a ticker to its security class based on its
// suffix. Exclusion rules are data in suffixClasses, not scattered
// pattern matches.
func ClassifySecurity(symbol string) SecurityClass {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return ClassCommon
	}
	for _, sc := range suffixClasses {
		for _, sep := range []string{".", "-", ""} {
			tail := sep + sc.suffix
			if len(sym) > len(tail) && strings.HasSuffix(sym, tail) {
				return sc.class
			}
		}
	}
	return ClassCommon
}
