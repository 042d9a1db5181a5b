package service

import "time"

// Clock supplies the current time for token issuance and expiry checks.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
