// Package report turns raw toolchain output into per-fragment verdicts and
// renders run results for humans and for document annotation.
package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"time"
)

// TestEvent mirrors the JSON stream emitted by `go test -json`. Only the
// fields the mapper consumes are declared.
type TestEvent struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Package     string    `json:"Package"`
	Test        string    `json:"Test,omitempty"`
	Elapsed     float64   `json:"Elapsed,omitempty"`
	Output      string    `json:"Output,omitempty"`
	FailedBuild string    `json:"FailedBuild,omitempty"`
}

// decodeEvents parses a -json stream line by line. Non-JSON lines (module
// loading errors get interleaved as plain text) are skipped rather than
// aborting the whole decode.
func decodeEvents(stream []byte) []TestEvent {
	var events []TestEvent
	sc := bufio.NewScanner(bytes.NewReader(stream))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var ev TestEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}
