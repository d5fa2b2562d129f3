// Package sink emits extracted records downstream as JSON-line messages:
// SCHEMA once per stream, RECORD per record, STATE on every state write.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/rivermill/tap-sendgrid/pkg/catalog"
	"github.com/rivermill/tap-sendgrid/pkg/state"
)

// Message is the wire envelope for one output line.
type Message struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream,omitempty"`
	Record        map[string]any `json:"record,omitempty"`
	Schema        map[string]any `json:"schema,omitempty"`
	TimeExtracted string         `json:"time_extracted,omitempty"`
	Value         any            `json:"value,omitempty"`
}

// Writer emits messages to an underlying writer, stdout in the CLI.
type Writer struct {
	enc            *json.Encoder
	schemasWritten map[string]bool
	validate       bool
	compiled       map[string]*gojsonschema.Schema
	now            func() time.Time
	logger         zerolog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithValidation enables per-record schema validation before emission.
// Off by default: the schemas are shape descriptions, and upstream trimming
// already guarantees the field set.
func WithValidation() Option {
	return func(w *Writer) { w.validate = true }
}

// withClock overrides the extraction timestamp source (tests).
func withClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

// NewWriter creates a message writer.
func NewWriter(out io.Writer, opts ...Option) *Writer {
	w := &Writer{
		enc:            json.NewEncoder(out),
		schemasWritten: make(map[string]bool),
		compiled:       make(map[string]*gojsonschema.Schema),
		now:            time.Now,
		logger:         log.With().Str("component", "sink").Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteRecords emits the records for a stream, preceded by the stream's
// SCHEMA message on first use. Records are emitted in input order.
func (w *Writer) WriteRecords(entry catalog.Entry, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}

	if !w.schemasWritten[entry.Stream] {
		if err := w.enc.Encode(Message{
			Type:   "SCHEMA",
			Stream: entry.Stream,
			Schema: entry.Schema,
		}); err != nil {
			return fmt.Errorf("write schema for %s: %w", entry.Stream, err)
		}
		w.schemasWritten[entry.Stream] = true
	}

	extracted := w.now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		if w.validate {
			if err := w.validateRecord(entry, rec); err != nil {
				return err
			}
		}
		if err := w.enc.Encode(Message{
			Type:          "RECORD",
			Stream:        entry.Stream,
			Record:        rec,
			TimeExtracted: extracted,
		}); err != nil {
			return fmt.Errorf("write record for %s: %w", entry.Stream, err)
		}
	}

	w.logger.Debug().
		Str("stream", entry.Stream).
		Int("records", len(records)).
		Msg("Wrote records")
	return nil
}

// WriteState emits a STATE message carrying the full state document.
func (w *Writer) WriteState(st *state.State) error {
	if err := w.enc.Encode(Message{Type: "STATE", Value: st}); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// validateRecord checks a record against the stream's compiled schema.
func (w *Writer) validateRecord(entry catalog.Entry, rec map[string]any) error {
	schema, ok := w.compiled[entry.Stream]
	if !ok {
		var err error
		schema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(entry.Schema))
		if err != nil {
			return fmt.Errorf("compile schema for %s: %w", entry.Stream, err)
		}
		w.compiled[entry.Stream] = schema
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(rec))
	if err != nil {
		return fmt.Errorf("validate record for %s: %w", entry.Stream, err)
	}
	if !result.Valid() {
		return fmt.Errorf("record for %s failed schema validation: %v", entry.Stream, result.Errors())
	}
	return nil
}
