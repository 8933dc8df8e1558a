package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Pattern to match potential passwords and token secrets in
	// querystring- or keyword-style fragments (password=..., pwd=...).
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass|token_value|tokensecret|personalaccesstokensecret)=[^;&\s]+`)

	// Pattern to match JWT bearer tokens (three base64url segments).
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Pattern to match Tableau auth tokens carried in request headers.
	authHeaderPattern = regexp.MustCompile(`(?i)(x-tableau-auth):?\s*[A-Za-z0-9-_]+`)

	// Pattern to match connection string credentials (user:pass@host).
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeURI removes embedded credentials from a server URI before logging.
func SanitizeURI(uri string) string {
	if uri == "" {
		return ""
	}
	return connStringPattern.ReplaceAllString(uri, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError scrubs credential material from error messages. Sign-in
// failures can echo the request back, so every error that crossed the
// Tableau client must pass through here before logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = authHeaderPattern.ReplaceAllString(sanitized, "${1}: "+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}
