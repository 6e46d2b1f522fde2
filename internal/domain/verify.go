package domain

import "strings"

// listingColumns is the minimum field count of a well-formed `ctr images
// ls` row: REF TYPE DIGEST SIZE(value unit) PLATFORMS [LABELS]. SIZE
// splits into two whitespace fields.
const listingColumns = 5

// VerifiedImage is the identity and size extracted from a runtime image
// listing.
type VerifiedImage struct {
	Ref  string
	Size string
}

// FindInListing scans tabular image-listing output for the first row
// whose ref contains image as a substring. Header and malformed rows
// (fewer than the expected columns) are skipped rather than guessed at.
// The scan is pure, so repeated calls over unchanged output return
// identical results.
func FindInListing(listing, image string) (VerifiedImage, bool) {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) < listingColumns {
			continue
		}
		if fields[0] == "REF" {
			continue
		}
		if !strings.Contains(fields[0], image) {
			continue
		}
		return VerifiedImage{
			Ref:  fields[0],
			Size: fields[3] + " " + fields[4],
		}, true
	}
	return VerifiedImage{}, false
}
