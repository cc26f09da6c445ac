package safety

import "slices"

const (
	redactionToken = "[REDACTED]"
	emailToken     = "[EMAIL_REDACTED]"
	phoneToken     = "[PHONE_REDACTED]"
	removedMarker  = "[Content removed for safety violations]"
)

// redact rewrites text for the triggered categories. Hate speech and
// harassment replace the whole text.
func redact(text string, triggered []string) string {
	if slices.Contains(triggered, CategoryHateSpeech) || slices.Contains(triggered, CategoryHarassment) {
		return removedMarker
	}

	out := text
	if slices.Contains(triggered, CategoryProfanity) {
		out = profanityPattern.ReplaceAllString(out, redactionToken)
	}
	if slices.Contains(triggered, CategoryPrivacyViolation) {
		out = emailPattern.ReplaceAllString(out, emailToken)
		out = phonePattern.ReplaceAllString(out, phoneToken)
	}
	return out
}
