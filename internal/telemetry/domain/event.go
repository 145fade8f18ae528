package domain

import "time"

// EventType is one of the closed set of security event types.
type EventType string

const (
	EventFailedLogin            EventType = "failed_login"
	EventSuspiciousLogin        EventType = "suspicious_login"
	EventTokenValidationFailure EventType = "token_validation_failure"
	EventCSRFViolation          EventType = "csrf_violation"
	EventBruteForceAttempt      EventType = "brute_force_attempt"
)

// Severity ranks an event from low to critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severities = map[EventType]Severity{
	EventFailedLogin:            SeverityLow,
	EventTokenValidationFailure: SeverityMedium,
	EventSuspiciousLogin:        SeverityHigh,
	EventCSRFViolation:          SeverityHigh,
	EventBruteForceAttempt:      SeverityCritical,
}

// SeverityFor returns the severity of t. Unknown types are medium.
func SeverityFor(t EventType) Severity {
	if s, ok := severities[t]; ok {
		return s
	}
	return SeverityMedium
}

// Known reports whether t is in the closed set.
func (t EventType) Known() bool {
	_, ok := severities[t]
	return ok
}

// Subject identifies who or what an event is about. All fields are optional.
type Subject struct {
	UserID     string `json:"userId,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	IP         string `json:"ip,omitempty"`
}

// SecurityEvent is one recorded occurrence. The JSON form is the Kafka message value.
type SecurityEvent struct {
	ID         int64             `json:"-"`
	EventType  EventType         `json:"eventType"`
	Severity   Severity          `json:"severity"`
	Subject    Subject           `json:"subject"`
	Details    map[string]string `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
