package authbridge

import "fmt"

// Logger is the minimal logging surface used across the package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds broker options
type Config interface {
	GetIssuer() string
	GetDefaultKID() string
	GetTokenTTL() int           // seconds
	GetPendingRedirectTTL() int // seconds
	GetCookieMaxAge() int       // seconds
	GetPostbackTimeout() int    // seconds
	GetReauthURL() string
	GetInitializeURL() string
	GetPortalURL() string
	GetErrorPageURL() string
}

// SessionCookieName is the cookie carrying the session identifier.
const SessionCookieName = "sessionId"

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHBRIDGE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHBRIDGE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
