package moderation

import "regexp"

// BlockNotice is broadcast in place of a message that leaked contact details.
const BlockNotice = "Message blocked: sharing contact details is not allowed."

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Phone numbers: 8+ digits allowing separators, optional country prefix.
	phonePattern = regexp.MustCompile(`(\+?\d[\d\s\-().]{7,}\d)`)
)

// ContainsContactInfo reports whether the text carries an email address or a
// phone number. Matched messages are never persisted; the gateway broadcasts
// an ERROR-typed block notice instead.
func ContainsContactInfo(text string) bool {
	if emailPattern.MatchString(text) {
		return true
	}
	return phonePattern.MatchString(text)
}
