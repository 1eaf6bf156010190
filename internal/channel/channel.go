// Package channel defines the closed sales-channel taxonomy and the
// normalization of free-form upstream labels into it.
//
// Normalization is exact-match-or-OTHER: a label either hits the alias
// table after canonical cleanup or it lands in the OTHER bucket.
// There is no fuzzy or partial matching, so a new label appearing upstream
// becomes visible as OTHER volume instead of being silently misclassified.
package channel

import "strings"

// Code identifies one canonical sales channel.
type Code string

const (
	// Web covers the online marketplace group.
	Web Code = "WEB"
	// Wholesale covers the wholesale and OEM pipelines combined.
	Wholesale Code = "WHOLESALE"
	// Store covers direct storefront sales.
	Store Code = "STORE"
	// Shoku covers the food-service line.
	Shoku Code = "SHOKU"
	// Other is the catch-all for every label the taxonomy does not know.
	Other Code = "OTHER"
)

// String returns the string representation of the channel code.
func (c Code) String() string {
	return string(c)
}

// IsValid checks if the code is a member of the closed taxonomy.
func (c Code) IsValid() bool {
	switch c {
	case Web, Wholesale, Store, Shoku, Other:
		return true
	default:
		return false
	}
}

// All returns every channel code in its fixed reporting order. OTHER is
// last so pivots always show the catch-all at the end.
func All() []Code {
	return []Code{Web, Wholesale, Store, Shoku, Other}
}

// aliases maps cleaned-up upstream labels to canonical codes. Only exact
// matches count; the table carries the label variants the upstream
// pipelines have historically produced. OEM is folded into WHOLESALE so
// the wholesale+OEM combination is uniform across every call site.
var aliases = map[string]Code{
	"WEB":       Web,
	"EC":        Web,
	"ONLINE":    Web,
	"WHOLESALE": Wholesale,
	"OEM":       Wholesale,
	"OROSHI":    Wholesale,
	"STORE":     Store,
	"SHOP":      Store,
	"TENPO":     Store,
	"SHOKU":     Shoku,
	"FOOD":      Shoku,
	"OTHER":     Other,
}

// Normalize maps a raw channel label to its canonical code. The label is
// trimmed, uppercased and internal whitespace is collapsed before the
// exact lookup; anything unmapped, including the empty string, returns
// Other. Normalize never fails.
func Normalize(raw string) Code {
	cleaned := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if code, ok := aliases[cleaned]; ok {
		return code
	}
	return Other
}
