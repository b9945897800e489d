package constants

import (
	"strings"
)

type Segment string

const (
	Lead     Segment = "Lead"
	Customer Segment = "Customer"
	Partner  Segment = "Partner"
	Vendor   Segment = "Vendor"
	Investor Segment = "Investor"
	Other    Segment = "Other"
)

var allSegments = []Segment{
	Lead,
	Customer,
	Partner,
	Vendor,
	Investor,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allSegments))
	for i, s := range allSegments {
		result[i] = string(s)
	}
	return result
}

func Canonicalize(input string) (Segment, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Segment{
		"prospect": Lead,
		"mql":      Lead,
		"sql":      Lead,
		"client":   Customer,
		"account":  Customer,
		"reseller": Partner,
		"agency":   Partner,
		"supplier": Vendor,
		"provider": Vendor,
		"backer":   Investor,
	}

	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allSegments {
		if normalized == strings.ToLower(string(s)) {
			return s, true
		}
	}

	return Other, false
}
