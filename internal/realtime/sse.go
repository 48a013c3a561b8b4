package realtime

import (
	"fmt"
	"io"
)

// WriteSSE renders ev in text/event-stream framing. Heartbeats become a comment line.
func WriteSSE(w io.Writer, ev Event) error {
	if ev.Kind == KindHeartbeat {
		_, err := io.WriteString(w, ":hb\n\n")
		return err
	}
	data := ev.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
