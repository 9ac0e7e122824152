package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

var (
	// ErrValidation is returned for malformed or out of range input, before
	// any page is fetched.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration is returned when a method has no scraper to run it.
	ErrConfiguration = errors.New("configuration error")
)

// Method is one of the logical scrape operations.
type Method int

const (
	MethodPrograms Method = iota
	MethodPreviews
	MethodOdds
	MethodWinOdds
	MethodPlaceOdds
	MethodExactaOdds
	MethodQuinellaOdds
	MethodQuinellaPlaceOdds
	MethodTrifectaOdds
	MethodTrioOdds
	MethodResults
	MethodStadiums
)

var methodNames = map[Method]string{
	MethodPrograms:          "scrape_programs",
	MethodPreviews:          "scrape_previews",
	MethodOdds:              "scrape_odds",
	MethodWinOdds:           "scrape_win_odds",
	MethodPlaceOdds:         "scrape_place_odds",
	MethodExactaOdds:        "scrape_exacta_odds",
	MethodQuinellaOdds:      "scrape_quinella_odds",
	MethodQuinellaPlaceOdds: "scrape_quinella_place_odds",
	MethodTrifectaOdds:      "scrape_trifecta_odds",
	MethodTrioOdds:          "scrape_trio_odds",
	MethodResults:           "scrape_results",
	MethodStadiums:          "scrape_stadiums",
}

var methodsByName = lo.Invert(methodNames)

func (m Method) String() string {
	name, ok := methodNames[m]
	if !ok {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return name
}

// ParseMethod resolves a method name like "scrape_programs", the
// "scrape_" prefix is optional and dashes are read as underscores.
func ParseMethod(name string) (Method, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if !strings.HasPrefix(normalized, "scrape_") {
		normalized = "scrape_" + normalized
	}

	method, ok := methodsByName[normalized]
	if !ok {
		return 0, fmt.Errorf("%w: unknown method %q", ErrValidation, name)
	}
	return method, nil
}

// MethodNames lists every method name in alphabetical order.
func MethodNames() []string {
	names := lo.Values(methodNames)
	slices.Sort(names)
	return names
}
