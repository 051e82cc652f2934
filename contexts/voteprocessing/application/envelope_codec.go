package application

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	contractsv1 "votepipeline/contracts/gen/events/v1"
	"votepipeline/contexts/voteprocessing/domain/entities"
)

// SourceService names this pipeline in every published envelope's
// SourceService field.
const SourceService = "votepipeline"

const envelopeSchemaVersion = 1

// EncodeEnvelope wraps a domain envelope in the generated wire contract
// before it is handed to the bus: event metadata (id, type, occurrence
// time, partition key) lives in the contract envelope, the domain payload
// rides opaque in Data.
func EncodeEnvelope(envelope entities.Envelope, occurredAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal domain envelope: %w", err)
	}

	eventType := string(envelope.Kind)
	if envelope.Status != "" {
		eventType = fmt.Sprintf("%s.%s", envelope.Kind, envelope.Status)
	}

	wire := contractsv1.Envelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		OccurredAt:       occurredAt,
		SourceService:    SourceService,
		SchemaVersion:    envelopeSchemaVersion,
		PartitionKeyPath: "fingerprint",
		PartitionKey:     envelope.Fingerprint.String(),
		Data:             payload,
	}

	return json.Marshal(wire)
}

// DecodeEnvelope unwraps the generated wire contract and decodes its Data
// field into the domain envelope consumers actually operate on.
func DecodeEnvelope(data []byte) (entities.Envelope, error) {
	var wire contractsv1.Envelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return entities.Envelope{}, fmt.Errorf("unmarshal wire envelope: %w", err)
	}

	var envelope entities.Envelope
	if err := json.Unmarshal(wire.Data, &envelope); err != nil {
		return entities.Envelope{}, fmt.Errorf("unmarshal envelope data: %w", err)
	}
	return envelope, nil
}
