package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Every key lives under one namespace so the Redis instance can be shared.
const keyNamespace = "healthradar:"

// UploadCounterKey holds the shared upload cadence counter.
const UploadCounterKey = keyNamespace + "uploads:counter"

func JobStatusKey(jobID uuid.UUID) string {
	return keyNamespace + "job:" + jobID.String()
}

// RateLimitKey names the counter for one subject in the window starting at windowStart.
func RateLimitKey(subject string, windowStart time.Time) string {
	return fmt.Sprintf("%sratelimit:%s:%d", keyNamespace, subject, windowStart.Unix())
}
