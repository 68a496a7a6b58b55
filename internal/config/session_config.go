package config

import "time"

type SessionConfig interface {
	GetRefreshLeadTime() time.Duration
	GetReactiveThreshold() time.Duration
	GetRefreshTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshLeadTime is how long before access token expiry the proactive refresh fires
func (Session) GetRefreshLeadTime() time.Duration {
	return GetDuration("CONSOLE_REFRESH_LEAD_TIME", 30*time.Minute)
}

// GetReactiveThreshold is the preflight window checked before each request
func (Session) GetReactiveThreshold() time.Duration {
	return GetDuration("CONSOLE_REACTIVE_THRESHOLD", 60*time.Second)
}

func (Session) GetRefreshTimeout() time.Duration {
	return GetDuration("CONSOLE_REFRESH_TIMEOUT", 10*time.Second)
}
