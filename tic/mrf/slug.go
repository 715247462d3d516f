package mrf

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var nonAlnumExp = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify produces the filesystem-safe form of a customer name or id:
// lowercase, any run of non-alphanumerics collapsed to a single hyphen,
// leading/trailing hyphens trimmed. An empty result becomes "unknown".
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumExp.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}

// FileName builds the document file name from the customer display name, the
// customer id, and the generation date.
func FileName(displayName, customerID string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s.json", Slugify(displayName), Slugify(customerID), now.Format("2006-01-02"))
}
