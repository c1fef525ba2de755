package config

import (
	"net/url"
	"regexp"
	"strings"
)

var keywordPassword = regexp.MustCompile(`(password\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// RedactURL replaces the password in a PostgreSQL connection string with "***".
// Both URL ("postgres://user:pw@host/db") and keyword ("host=x password=pw")
// forms are handled; anything else is returned unchanged.
func RedactURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return keywordPassword.ReplaceAllString(raw, "${1}***")
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	_, rest, _ := strings.Cut(raw, "://")

	userinfo, _, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}

	name, _, _ := strings.Cut(userinfo, ":")
	prefix := raw[:len(raw)-len(rest)]

	return prefix + name + ":***" + rest[len(userinfo):]
}
