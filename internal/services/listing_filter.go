package services

import (
	"strings"

	"yuva/server/internal/models"
)

// FilterListings keeps the listings whose name, species or breed contains
// query, ignoring case. Order is preserved and an empty query keeps everything.
func FilterListings(listings []models.Listing, query string) []models.Listing {
	q := strings.ToLower(query)
	result := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if matchesListing(l, q) {
			result = append(result, l)
		}
	}
	return result
}

func matchesListing(l models.Listing, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(l.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(l.Species), lowerQuery) ||
		strings.Contains(strings.ToLower(l.Breed), lowerQuery)
}
