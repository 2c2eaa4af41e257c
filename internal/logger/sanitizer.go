package logger

import (
	"regexp"
	"strings"
)

// Sanitizer masks secrets and user names in log output.
//
// SanitizeArgs only masks values whose key looks sensitive (token, secret,
// ...). A secret embedded in the value of an innocuous key is only caught
// if one of the message patterns matches it.
type Sanitizer struct {
	patterns []SanitizeRule
}

// SanitizeRule replaces every match of Pattern with Replacement
type SanitizeRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// NewSanitizer creates a sanitizer with the default rules
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultSanitizeRules(),
	}
}

var sensitiveKeys = []string{
	"password", "passwd",
	"token", "secret", "api_key", "apikey",
	"credential", "auth",
}

func defaultSanitizeRules() []SanitizeRule {
	return []SanitizeRule{
		// OAuth parameters
		{regexp.MustCompile(`(?i)(access_token|refresh_token|client_secret)=[^&\s]+`), "$1=***"},
		{regexp.MustCompile(`(?i)password=\S+`), "password=***"},
		{regexp.MustCompile(`(?i)token=[^&\s]+`), "token=***"},
		{regexp.MustCompile(`(?i)bearer\s+\S+`), "bearer ***"},

		// Google access tokens
		{regexp.MustCompile(`ya29\.[\w-]+`), "ya29.***"},

		// User home directories
		{regexp.MustCompile(`(?i)[A-Z]:\\Users\\[^\\]+`), "***:\\Users\\***"},
		{regexp.MustCompile(`/home/[^/\s]+`), "/home/***"},
		{regexp.MustCompile(`/Users/[^/\s]+`), "/Users/***"},
	}
}

// Sanitize applies every rule to input
func (s *Sanitizer) Sanitize(input string) string {
	for _, rule := range s.patterns {
		input = rule.Pattern.ReplaceAllString(input, rule.Replacement)
	}
	return input
}

// SanitizeArgs masks the values of sensitive keys in slog style key/value
// pairs and applies the message rules to the remaining string values
func (s *Sanitizer) SanitizeArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}

		var value string
		switch v := result[i+1].(type) {
		case string:
			value = v
		case error:
			value = v.Error()
		default:
			continue
		}

		if isSensitiveKey(key) {
			result[i+1] = maskValue(value)
		} else {
			result[i+1] = s.Sanitize(value)
		}
	}

	return result
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sk := range sensitiveKeys {
		if strings.Contains(lower, sk) {
			return true
		}
	}
	return false
}

// maskValue keeps the first and last character of long values
func maskValue(value string) string {
	if len(value) <= 2 {
		return "***"
	}
	if len(value) <= 8 {
		return value[:1] + "***"
	}
	return value[:1] + "***" + value[len(value)-1:]
}
