// Package storage persists accepted recordings, either to S3 or to the
// local data directory when no object store is configured.
package storage

import (
	"fmt"
	"regexp"
	"time"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// SanitizeSampleID normalizes a sample identifier for use in object keys
// and directory names. Anything outside [a-zA-Z0-9-] becomes an
// underscore so identifiers can never escape their prefix.
func SanitizeSampleID(sampleID string) string {
	return unsafeKeyChars.ReplaceAllString(sampleID, "_")
}

// ObjectKey builds the canonical object key for one take:
// videos/<sanitized-sample-id>/recording_<take>_<unix-ms>.<ext>.
func ObjectKey(sampleID string, takeIndex int, ext string, now time.Time) string {
	return fmt.Sprintf("videos/%s/recording_%d_%d%s", SanitizeSampleID(sampleID), takeIndex, now.UnixMilli(), ext)
}

// SamplePrefix is the key prefix under which all of a sample's
// recordings live.
func SamplePrefix(sampleID string) string {
	return "videos/" + SanitizeSampleID(sampleID) + "/"
}
