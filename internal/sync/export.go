package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/eventdesk/internal/model"
)

// FormatVersion is written to the header of every snapshot.
const FormatVersion = "1"

// Source supplies the events to export.
type Source interface {
	FetchAll(ctx context.Context) ([]model.Event, error)
}

// Header is the first JSONL record written by ExportJSONL.
type Header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	EventCount int       `json:"event_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrBadSnapshot is returned by ReadJSONL for input that is not a snapshot.
var ErrBadSnapshot = errors.New("not an event snapshot")

// ExportJSONL writes every event from src as JSONL to w: a header line
// followed by one line per event, sorted by id.
func ExportJSONL(ctx context.Context, src Source, w io.Writer) error {
	events, err := src.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].ID < events[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{
		Version:    FormatVersion,
		Type:       "header",
		Timestamp:  time.Now().UTC(),
		EventCount: len(events),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, e := range events {
		if e.Attributes == nil {
			e.Attributes = model.Attributes{}
		}
		if err := enc.Encode(struct {
			Type string      `json:"type"`
			Data model.Event `json:"data"`
		}{"event", e}); err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}
	return nil
}

// ReadJSONL parses a snapshot written by ExportJSONL. Records of unknown
// type are skipped.
func ReadJSONL(r io.Reader) (Header, []model.Event, error) {
	var h Header
	var events []model.Event

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		line++
		if line == 1 {
			if err := json.Unmarshal(raw, &h); err != nil || h.Type != "header" {
				return Header{}, nil, ErrBadSnapshot
			}
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Header{}, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Type != "event" {
			continue
		}
		var e model.Event
		if err := json.Unmarshal(rec.Data, &e); err != nil {
			return Header{}, nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return Header{}, nil, fmt.Errorf("read snapshot: %w", err)
	}
	if line == 0 {
		return Header{}, nil, ErrBadSnapshot
	}
	return h, events, nil
}
