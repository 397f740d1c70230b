package domain

import "strings"

// Session identifies the caller of an operation. It is passed explicitly to
// every call that needs the caller's credential.
//
// BearerOverride carries a token supplied directly by the caller (an
// Authorization header). When set it takes precedence over the token bound
// to ID.
type Session struct {
	ID             string
	BearerOverride string
}

// HasBearerOverride reports whether a direct bearer credential was supplied.
func (s Session) HasBearerOverride() bool {
	return strings.TrimSpace(s.BearerOverride) != ""
}
