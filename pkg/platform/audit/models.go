package audit

import (
	"time"

	id "modzero/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: access decisions, policy changes, user creation.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// These feed into SIEM systems and alerting pipelines.
	// Examples: auth failures, token revocations, denied attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	// Examples: token issuance, checkpoint recordings, routine access patterns.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Decision  string
	Reason    string
	// IP is the resolved client address when relevant for forensics.
	IP string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
	// ActorID tracks who performed the action when different from UserID.
	// Used for admin operations where an admin acts on a user's behalf.
	ActorID string
}

type AuditEvent string

const (
	// Auth events
	EventUserCreated  AuditEvent = "user_created"
	EventUserDeleted  AuditEvent = "user_deleted"
	EventAuthFailed   AuditEvent = "auth_failed"
	EventTokenIssued  AuditEvent = "token_issued"
	EventTokenRevoked AuditEvent = "token_revoked"

	// Policy events
	EventPolicyCreated     AuditEvent = "policy_created"
	EventPolicyUpdated     AuditEvent = "policy_updated"
	EventPolicyActivated   AuditEvent = "policy_activated"
	EventPolicyDeactivated AuditEvent = "policy_deactivated"
	EventPolicyDeleted     AuditEvent = "policy_deleted"

	// Device events
	EventDeviceRegistered   AuditEvent = "device_registered"
	EventDeviceDeleted      AuditEvent = "device_deleted"
	EventCheckpointRecorded AuditEvent = "checkpoint_recorded"

	// Trust evaluation events
	EventAttemptEvaluated AuditEvent = "attempt_evaluated"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - require tamper-proof storage
	EventUserCreated:      CategoryCompliance,
	EventAttemptEvaluated: CategoryCompliance,
	EventPolicyCreated:    CategoryCompliance,
	EventPolicyUpdated:    CategoryCompliance,
	EventPolicyDeleted:    CategoryCompliance,

	// Security events - feed into SIEM and alerting
	EventUserDeleted:       CategorySecurity,
	EventAuthFailed:        CategorySecurity,
	EventTokenRevoked:      CategorySecurity,
	EventPolicyActivated:   CategorySecurity,
	EventPolicyDeactivated: CategorySecurity,
	EventDeviceDeleted:     CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventTokenIssued:        CategoryOperations,
	EventDeviceRegistered:   CategoryOperations,
	EventCheckpointRecorded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
