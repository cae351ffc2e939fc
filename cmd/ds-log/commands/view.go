package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepstreamio/deepstream-go/pkg/log"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

const timestampFormat = "2006-01-02T15:04:05.000000Z"

// RunView writes the events of path that match opts in human-readable form.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	_, err = each(reader, func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
	return err
}

// formatEvent writes one event:
//
//	timestamp [conn:id] DIR LAYER Label
//	  details...
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampFormat)
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		ts, shortenConnID(event.ConnectionID), event.Direction.String(), event.Layer.String(), eventLabel(event))

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
	if event.URL != "" {
		fmt.Fprintf(w, "  URL: %s\n", event.URL)
	}

	fmt.Fprintln(w)
}

// eventLabel names an event, e.g. "CONNECTION/CHALLENGE".
func eventLabel(event log.Event) string {
	switch {
	case event.Message != nil:
		return wire.Topic(event.Message.Topic).String() + "/" + wire.Action(event.Message.Action).String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	switch {
	case msg.Redacted:
		fmt.Fprintln(w, "  Data: <redacted>")
	case len(msg.Data) > 0:
		fmt.Fprintf(w, "  Data: %s\n", strings.Join(msg.Data, " | "))
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", e.Layer.String())
	if e.Event != "" {
		fmt.Fprintf(w, "  Event: %s\n", e.Event)
	}
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}
