package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects capture events. Zero-valued fields select everything;
// set fields must all match.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// Topic is a wire topic token such as "A". Only message events carry a
	// topic, so any other event is excluded when Topic is set.
	Topic string
}

func (f *Filter) matches(ev Event) bool {
	switch {
	case f.ConnectionID != "" && ev.ConnectionID != f.ConnectionID:
		return false
	case f.Direction != nil && ev.Direction != *f.Direction:
		return false
	case f.Layer != nil && ev.Layer != *f.Layer:
		return false
	case f.Category != nil && ev.Category != *f.Category:
		return false
	case f.TimeStart != nil && ev.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !ev.Timestamp.Before(*f.TimeEnd):
		return false
	case f.Topic != "" && (ev.Message == nil || ev.Message.Topic != f.Topic):
		return false
	}
	return true
}

// Reader streams events out of a capture file written by FileLogger.
type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens a capture file for reading every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file, yielding only events that match
// filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, dec: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var ev Event
		if err := r.dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("capture %s: %w", r.file.Name(), err)
		}
		if r.filter.matches(ev) {
			return ev, nil
		}
	}
}

// Close releases the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
