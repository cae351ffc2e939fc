package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deepstreamio/deepstream-go/pkg/log"
)

const testConnID = "abc12345-6789-0123-4567-890abcdef012"

var testStart = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp:    testStart,
			ConnectionID: testConnID,
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			URL:          "ws://localhost:6020/deepstream",
			StateChange:  &log.StateChangeEvent{OldState: "CLOSED", NewState: "AWAITING_CONNECTION", Reason: "transport opened"},
		},
		{
			Timestamp:    testStart.Add(time.Millisecond),
			ConnectionID: testConnID,
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Topic: "C", Action: "CH"},
		},
		{
			Timestamp:    testStart.Add(2 * time.Millisecond),
			ConnectionID: testConnID,
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Topic: "C", Action: "CHR", Data: []string{"ws://localhost:6020/deepstream"}},
		},
		{
			Timestamp:    testStart.Add(3 * time.Millisecond),
			ConnectionID: testConnID,
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Topic: "A", Action: "REQ", Redacted: true},
		},
		{
			Timestamp:    testStart.Add(4 * time.Millisecond),
			ConnectionID: testConnID,
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryError,
			Error:        &log.ErrorEventData{Layer: log.LayerWire, Message: "malformed message", Event: "MESSAGE_PARSE_ERROR"},
		},
		{
			Timestamp:    testStart.Add(5 * time.Millisecond),
			ConnectionID: "other-connection",
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange:  &log.StateChangeEvent{OldState: "OPEN", NewState: "RECONNECTING"},
		},
	}
}

func writeLog(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.dlog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestFormatMessageEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[2])
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.125456Z",
		"[conn:abc12345]",
		"OUT",
		"WIRE",
		"CONNECTION/CHALLENGE_RESPONSE",
		"Data: ws://localhost:6020/deepstream",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatRedactedMessage(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[3])

	if !strings.Contains(buf.String(), "Data: <redacted>") {
		t.Errorf("expected redacted data, got:\n%s", buf.String())
	}
}

func TestFormatStateAndErrorEvents(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	formatEvent(&buf, sampleEvents()[4])
	output := buf.String()

	for _, want := range []string{
		"SESSION State",
		"CLOSED -> AWAITING_CONNECTION",
		"Reason: transport opened",
		"URL: ws://localhost:6020/deepstream",
		"WIRE Error",
		"Event: MESSAGE_PARSE_ERROR",
		"Message: malformed message",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestShortenConnID(t *testing.T) {
	if got := shortenConnID(testConnID); got != "abc12345" {
		t.Errorf("shortenConnID = %q, want abc12345", got)
	}
	if got := shortenConnID("abc"); got != "abc" {
		t.Errorf("shortenConnID = %q, want abc", got)
	}
}

func TestRunViewFilters(t *testing.T) {
	path := writeLog(t, sampleEvents())

	tests := []struct {
		name    string
		opts    FilterOptions
		entries int
	}{
		{"all", FilterOptions{}, 6},
		{"outgoing", FilterOptions{Direction: "out"}, 2},
		{"state", FilterOptions{Category: "state"}, 2},
		{"auth topic by name", FilterOptions{Topic: "auth"}, 1},
		{"connection topic by token", FilterOptions{Topic: "c"}, 2},
		{"connection id", FilterOptions{ConnID: "other-connection"}, 1},
		{"session layer", FilterOptions{Layer: "SESSION"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RunView(path, tt.opts, &buf); err != nil {
				t.Fatalf("RunView: %v", err)
			}
			if got := strings.Count(buf.String(), "[conn:"); got != tt.entries {
				t.Errorf("got %d events, want %d:\n%s", got, tt.entries, buf.String())
			}
		})
	}
}

func TestFilterOptionsInvalid(t *testing.T) {
	tests := []FilterOptions{
		{Layer: "service"},
		{Direction: "sideways"},
		{Category: "snapshot"},
		{Topic: "presence"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
	}
	for _, opts := range tests {
		if _, err := opts.Build(); err == nil {
			t.Errorf("Build(%+v) succeeded, want error", opts)
		}
	}
}

func TestFilterOptionsTimeRange(t *testing.T) {
	opts := FilterOptions{
		TimeStart: "2026-01-28T10:00:00Z",
		TimeEnd:   "2026-01-28T11:00:00Z",
	}
	filter, err := opts.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if filter.TimeStart == nil || filter.TimeEnd == nil {
		t.Fatal("time range not set")
	}
	if !filter.TimeEnd.After(*filter.TimeStart) {
		t.Errorf("end %v not after start %v", filter.TimeEnd, filter.TimeStart)
	}
}

func TestCollectStats(t *testing.T) {
	path := writeLog(t, sampleEvents())

	stats, err := CollectStats(path, FilterOptions{})
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}

	if stats.TotalEvents != 6 {
		t.Errorf("TotalEvents = %d, want 6", stats.TotalEvents)
	}
	if stats.MessagesByTopic["C"] != 2 || stats.MessagesByTopic["A"] != 1 {
		t.Errorf("MessagesByTopic = %v", stats.MessagesByTopic)
	}
	if stats.ErrorsByEvent["MESSAGE_PARSE_ERROR"] != 1 {
		t.Errorf("ErrorsByEvent = %v", stats.ErrorsByEvent)
	}
	if len(stats.Connections) != 2 {
		t.Fatalf("Connections = %d, want 2", len(stats.Connections))
	}

	conn := stats.Connections[testConnID]
	if conn.Events != 5 {
		t.Errorf("Events = %d, want 5", conn.Events)
	}
	if conn.URL != "ws://localhost:6020/deepstream" {
		t.Errorf("URL = %q", conn.URL)
	}
	if conn.LastState != "AWAITING_CONNECTION" {
		t.Errorf("LastState = %q", conn.LastState)
	}
	if other := stats.Connections["other-connection"]; other.Reconnects != 1 {
		t.Errorf("Reconnects = %d, want 1", other.Reconnects)
	}
}

func TestRunStatsOutput(t *testing.T) {
	path := writeLog(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 6",
		"Connections: 2",
		"[abc12345] 5 events",
		"MESSAGE_PARSE_ERROR:",
		"Reconnects: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := writeLog(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", "", FilterOptions{Category: "message"}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	var event log.Event
	if err := json.Unmarshal([]byte(lines[1]), &event); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if event.Message == nil || event.Message.Action != "CHR" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := writeLog(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", "", FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	output := buf.String()

	if !strings.HasPrefix(output, "timestamp,connection_id,direction,layer,category,type,detail\n") {
		t.Errorf("missing header:\n%s", output)
	}
	if !strings.Contains(output, "AUTH/REQUEST,<redacted>") {
		t.Errorf("expected redacted auth request:\n%s", output)
	}
	if !strings.Contains(output, "CLOSED->AWAITING_CONNECTION") {
		t.Errorf("expected state change:\n%s", output)
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeLog(t, sampleEvents())
	if err := RunExport(path, "xml", "", FilterOptions{}, io.Discard); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	path := writeLog(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "filtered.dlog")

	var buf bytes.Buffer
	if err := RunFilter(path, output, FilterOptions{Direction: "in"}, &buf); err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 4 events") {
		t.Errorf("unexpected summary: %s", buf.String())
	}

	stats, err := CollectStats(output, FilterOptions{})
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if stats.EventsByDirection[log.DirectionOut] != 0 {
		t.Errorf("filtered file holds outgoing events")
	}
}
