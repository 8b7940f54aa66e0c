// Package redact scrubs credential-shaped substrings out of text that is
// about to be committed to disk. Fixtures capture whatever an operator
// typed into a chat, so the patterns cover the credentials this harness
// itself orbits: bot tokens, API keys, and the usual repo-hosting tokens.
package redact

import "regexp"

type Applied struct {
	Names []string
}

type rule struct {
	name        string
	re          *regexp.Regexp
	replacement string
}

// Keep this minimal but real: redaction must be bounded + default-safe.
var rules = []rule{
	{"telegram_bot_token", regexp.MustCompile(`\b\d{8,10}:[A-Za-z0-9_-]{30,}\b`), "[REDACTED:TELEGRAM_BOT_TOKEN]"},
	{"anthropic_key", regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{10,}\b`), "[REDACTED:ANTHROPIC_KEY]"},
	{"openai_key", regexp.MustCompile(`\bsk-[A-Za-z0-9]{10,}\b`), "[REDACTED:OPENAI_KEY]"},
	{"github_token", regexp.MustCompile(`\b(?:ghp|gho)_[A-Za-z0-9]{10,}\b`), "[REDACTED:GITHUB_TOKEN]"},
	{"bearer_token", regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{20,}=*`), "Bearer [REDACTED:BEARER_TOKEN]"},
}

func Text(s string) (string, Applied) {
	applied := Applied{}
	out := s

	for _, r := range rules {
		if r.re.MatchString(out) {
			out = r.re.ReplaceAllString(out, r.replacement)
			applied.Names = append(applied.Names, r.name)
		}
	}

	return out, applied
}
