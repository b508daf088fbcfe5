package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "depicts"

// ignoredParams never affect the response body.
var ignoredParams = map[string]bool{
	"format":        true,
	"formatversion": true,
	"maxlag":        true,
	"origin":        true,
}

// CacheKey identifies a cached API response.
type CacheKey struct {
	// API is the API host (e.g., "commons.wikimedia.org")
	API string

	// Params are the request parameters (e.g., {"action": "wbgetentities", "ids": "M1|M2"})
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: depicts:api:param1=val1:param2=val2
//
// Example:
//
//	depicts:www.wikidata.org:action=wbgetentities:ids=Q1|Q2:props=labels
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if api := strings.Trim(k.API, "/"); api != "" {
		parts = append(parts, api)
	}

	// Params sorted for determinism; multi-valued params joined in order.
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			if ignoredParams[key] {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Params[key], "|")))
		}
	}

	return strings.Join(parts, ":")
}
