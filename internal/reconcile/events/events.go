// Package events defines the identity-event envelope and payload schemas
// consumed by the reconciliation pipeline. Every message carries the common
// envelope (eventId, kind, occurredAt) plus a kind-specific payload; eventId
// is the deduplication key and survives redeliveries unchanged.
package events

import (
	"encoding/json"
	"strings"
	"time"

	id "hirelane/pkg/domain"
	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/email"
)

// Kind identifies an identity event type on the wire.
type Kind string

const (
	KindIdentityCreated Kind = "IDENTITY_CREATED"
	KindEmailVerified   Kind = "EMAIL_VERIFIED"
	KindRoleChanged     Kind = "ROLE_CHANGED"
	KindAccountDisabled Kind = "ACCOUNT_DISABLED"
)

var validKinds = map[Kind]struct{}{
	KindIdentityCreated: {},
	KindEmailVerified:   {},
	KindRoleChanged:     {},
	KindAccountDisabled: {},
}

// ParseKind validates a raw kind string against the closed set.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if _, ok := validKinds[k]; !ok {
		return "", dErrors.Newf(dErrors.CodeDeserialization, "unknown event kind: %q", raw)
	}
	return k, nil
}

func (k Kind) String() string { return string(k) }

// Inbound topics published by the identity service, one kind per topic.
// Messages are partitioned by account reference, so ordering holds per
// account and nowhere else.
const (
	TopicIdentityCreated = "identity.created"
	TopicEmailVerified   = "identity.email-verified"
	TopicRoleChanged     = "identity.role-changed"
	TopicAccountDisabled = "identity.account-disabled"
)

// Topics returns every inbound identity topic.
func Topics() []string {
	return []string{
		TopicIdentityCreated,
		TopicEmailVerified,
		TopicRoleChanged,
		TopicAccountDisabled,
	}
}

// Role is the account role carried on identity events. The set is closed:
// anything else parses to RoleUnknown, which is a representable case that
// callers must handle explicitly rather than a silent default branch.
type Role string

const (
	RoleApplicant Role = "APPLICANT"
	RoleCompany   Role = "COMPANY"
	RoleStaff     Role = "STAFF"
	RoleUnknown   Role = "UNKNOWN"
)

// ParseRole never fails; unrecognized input yields RoleUnknown.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleApplicant:
		return RoleApplicant
	case RoleCompany:
		return RoleCompany
	case RoleStaff:
		return RoleStaff
	default:
		return RoleUnknown
	}
}

func (r Role) String() string { return string(r) }

// Envelope is the common wrapper on every identity event.
type Envelope struct {
	EventID    id.EventID
	Kind       Kind
	OccurredAt time.Time
}

type envelopeWire struct {
	EventID    string          `json:"eventId"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// IdentityCreated announces a new account in the identity service.
type IdentityCreated struct {
	AccountRef id.AccountRef
	Email      string
	FirstName  string
	LastName   string
	Role       Role
}

type identityCreatedWire struct {
	AccountRef string `json:"accountRef"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       string `json:"role"`
}

// EmailVerified marks an account's email address as confirmed.
type EmailVerified struct {
	AccountRef id.AccountRef
}

type emailVerifiedWire struct {
	AccountRef string `json:"accountRef"`
}

// RoleChanged reports a role transition on an existing account.
type RoleChanged struct {
	AccountRef id.AccountRef
	OldRole    Role
	NewRole    Role
}

type roleChangedWire struct {
	AccountRef string `json:"accountRef"`
	OldRole    string `json:"oldRole"`
	NewRole    string `json:"newRole"`
}

// AccountDisabled reports that an account was deactivated upstream.
// ActorRef is informational only and is not validated.
type AccountDisabled struct {
	AccountRef id.AccountRef
	Reason     string
	ActorRef   string
}

type accountDisabledWire struct {
	AccountRef string `json:"accountRef"`
	Reason     string `json:"reason"`
	ActorRef   string `json:"actorRef"`
}

// decodeEnvelope parses the common wrapper and checks the kind against the
// topic's expected kind. A mismatch means a misrouted producer, which no
// amount of redelivery will fix.
func decodeEnvelope(data []byte, want Kind) (Envelope, json.RawMessage, error) {
	var w envelopeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, nil, dErrors.Wrap(err, dErrors.CodeDeserialization, "decode event envelope")
	}

	eventID, err := id.ParseEventID(w.EventID)
	if err != nil {
		return Envelope{}, nil, dErrors.Wrap(err, dErrors.CodeDeserialization, "event envelope: invalid eventId")
	}

	kind, err := ParseKind(w.Kind)
	if err != nil {
		return Envelope{}, nil, err
	}
	if kind != want {
		return Envelope{}, nil, dErrors.Newf(dErrors.CodeDeserialization, "event envelope: kind %s on %s topic", kind, want)
	}

	return Envelope{EventID: eventID, Kind: kind, OccurredAt: w.OccurredAt}, w.Payload, nil
}

// DecodeIdentityCreated parses a message from the identity.created topic.
func DecodeIdentityCreated(data []byte) (Envelope, IdentityCreated, error) {
	env, raw, err := decodeEnvelope(data, KindIdentityCreated)
	if err != nil {
		return Envelope{}, IdentityCreated{}, err
	}

	var w identityCreatedWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, IdentityCreated{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "decode identity-created payload")
	}

	ref, err := id.ParseAccountRef(w.AccountRef)
	if err != nil {
		return Envelope{}, IdentityCreated{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "identity-created: invalid accountRef")
	}
	if !email.Valid(w.Email) {
		return Envelope{}, IdentityCreated{}, dErrors.Newf(dErrors.CodeDeserialization, "identity-created: invalid email %q", w.Email)
	}

	return env, IdentityCreated{
		AccountRef: ref,
		Email:      email.Normalize(w.Email),
		FirstName:  strings.TrimSpace(w.FirstName),
		LastName:   strings.TrimSpace(w.LastName),
		Role:       ParseRole(w.Role),
	}, nil
}

// DecodeEmailVerified parses a message from the identity.email-verified topic.
func DecodeEmailVerified(data []byte) (Envelope, EmailVerified, error) {
	env, raw, err := decodeEnvelope(data, KindEmailVerified)
	if err != nil {
		return Envelope{}, EmailVerified{}, err
	}

	var w emailVerifiedWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, EmailVerified{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "decode email-verified payload")
	}

	ref, err := id.ParseAccountRef(w.AccountRef)
	if err != nil {
		return Envelope{}, EmailVerified{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "email-verified: invalid accountRef")
	}

	return env, EmailVerified{AccountRef: ref}, nil
}

// DecodeRoleChanged parses a message from the identity.role-changed topic.
func DecodeRoleChanged(data []byte) (Envelope, RoleChanged, error) {
	env, raw, err := decodeEnvelope(data, KindRoleChanged)
	if err != nil {
		return Envelope{}, RoleChanged{}, err
	}

	var w roleChangedWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, RoleChanged{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "decode role-changed payload")
	}

	ref, err := id.ParseAccountRef(w.AccountRef)
	if err != nil {
		return Envelope{}, RoleChanged{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "role-changed: invalid accountRef")
	}

	return env, RoleChanged{
		AccountRef: ref,
		OldRole:    ParseRole(w.OldRole),
		NewRole:    ParseRole(w.NewRole),
	}, nil
}

// DecodeAccountDisabled parses a message from the identity.account-disabled topic.
func DecodeAccountDisabled(data []byte) (Envelope, AccountDisabled, error) {
	env, raw, err := decodeEnvelope(data, KindAccountDisabled)
	if err != nil {
		return Envelope{}, AccountDisabled{}, err
	}

	var w accountDisabledWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Envelope{}, AccountDisabled{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "decode account-disabled payload")
	}

	ref, err := id.ParseAccountRef(w.AccountRef)
	if err != nil {
		return Envelope{}, AccountDisabled{}, dErrors.Wrap(err, dErrors.CodeDeserialization, "account-disabled: invalid accountRef")
	}

	return env, AccountDisabled{
		AccountRef: ref,
		Reason:     strings.TrimSpace(w.Reason),
		ActorRef:   strings.TrimSpace(w.ActorRef),
	}, nil
}

// Marshal builds the wire form of an event. Producers and tests use it; the
// consumer side only decodes. The payload must be one of the four kinds.
func Marshal(env Envelope, payload any) ([]byte, error) {
	var body any
	switch p := payload.(type) {
	case IdentityCreated:
		body = identityCreatedWire{
			AccountRef: p.AccountRef.String(),
			Email:      p.Email,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Role:       string(p.Role),
		}
	case EmailVerified:
		body = emailVerifiedWire{AccountRef: p.AccountRef.String()}
	case RoleChanged:
		body = roleChangedWire{
			AccountRef: p.AccountRef.String(),
			OldRole:    string(p.OldRole),
			NewRole:    string(p.NewRole),
		}
	case AccountDisabled:
		body = accountDisabledWire{
			AccountRef: p.AccountRef.String(),
			Reason:     p.Reason,
			ActorRef:   p.ActorRef,
		}
	default:
		return nil, dErrors.Newf(dErrors.CodeInternal, "marshal event: unsupported payload type %T", payload)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshal event payload")
	}
	return json.Marshal(envelopeWire{
		EventID:    env.EventID.String(),
		Kind:       string(env.Kind),
		OccurredAt: env.OccurredAt,
		Payload:    raw,
	})
}
