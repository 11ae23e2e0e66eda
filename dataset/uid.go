package dataset

import "regexp"

var uidRegex = regexp.MustCompile(`^[012]((\.0)|(\.[1-9][0-9]*))+$`)

// ValidUID reports whether s is a well-formed DICOM UID: dotted numeric
// components without leading zeros, rooted at 0, 1 or 2, at most 64 characters.
func ValidUID(s string) bool {
	return len(s) <= 64 && uidRegex.MatchString(s)
}
