package eventing

import (
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps event payload with metadata.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	TenantID      string          `json:"tenant_id"`
	ProjectID     string          `json:"project_id"`
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// Meta provides envelope overrides.
type Meta struct {
	EventID       string
	CorrelationID string
	TenantID      string
}

// BuildEnvelope constructs an envelope from event payload and metadata.
// ProjectID and OccurredAt are read from same-named event fields.
func BuildEnvelope(event any, meta Meta) (Envelope, error) {
	if event == nil {
		return Envelope{}, ErrNilEvent
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	value := reflect.ValueOf(event)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return Envelope{}, errors.New("eventing: nil event pointer")
		}
		value = value.Elem()
	}

	env := Envelope{
		EventID:       meta.EventID,
		EventType:     EventType(event),
		CorrelationID: meta.CorrelationID,
		TenantID:      meta.TenantID,
		SchemaVersion: 1,
		Payload:       payload,
	}
	if value.Kind() == reflect.Struct {
		if field := value.FieldByName("ProjectID"); field.IsValid() && field.Kind() == reflect.String {
			env.ProjectID = field.String()
		}
		if field := value.FieldByName("OccurredAt"); field.IsValid() {
			if t, ok := field.Interface().(time.Time); ok {
				env.OccurredAt = t.UTC()
			}
		}
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	if env.EventID == "" {
		env.EventID = uuid.NewString()
	}
	if env.CorrelationID == "" {
		env.CorrelationID = env.EventID
	}
	return env, nil
}
