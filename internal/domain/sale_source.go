package domain

import "strings"

var saleSources = map[string]SaleSource{
	"pos":    SaleSourcePOS,
	"manual": SaleSourceManual,
}

// ParseSaleSource maps a label to a SaleSource (case-insensitive).
// Unknown or empty labels are treated as manual entries.
func ParseSaleSource(label string) SaleSource {
	if source, ok := saleSources[strings.ToLower(strings.TrimSpace(label))]; ok {
		return source
	}

	return SaleSourceManual
}
