package logsink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/groundguard-io/groundguard/internal/core"
)

// entry is one audit record. Everything is flattened into a small fixed
// schema so downstream ingestion (the SQL sink this file stands in for)
// stays trivial.
type entry struct {
	Timestamp time.Time     `json:"ts"`
	Event     string        `json:"event"`
	Source    string        `json:"source,omitempty"`
	Sequence  uint64        `json:"seq,omitempty"`
	Result    string        `json:"result,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	From      string        `json:"from,omitempty"`
	To        string        `json:"to,omitempty"`
	Component string        `json:"component,omitempty"`
	Message   string        `json:"message,omitempty"`
	Payload   *core.Payload `json:"payload,omitempty"`
}

// JSONL is an append-only audit trail, one JSON object per line. Write
// failures are swallowed after the first reported one: the audit trail must
// never take down the control path.
type JSONL struct {
	mu       sync.Mutex
	file     *os.File
	writeErr bool
}

var _ Sink = (*JSONL)(nil)

// NewJSONL opens (creating if needed) an append-only audit file under dir.
func NewJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	path := filepath.Join(dir, "audit.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	return &JSONL{file: file}, nil
}

// Close flushes and closes the underlying file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

func (j *JSONL) write(e entry) {
	e.Timestamp = time.Now().UTC()

	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(data); err != nil && !j.writeErr {
		j.writeErr = true
		fmt.Fprintf(os.Stderr, "audit: write failed, further errors suppressed: %v\n", err)
	}
}

func (j *JSONL) LogCommandReceived(cmd core.Command) {
	j.write(entry{Event: "command_received", Source: cmd.Source.String(), Sequence: cmd.Sequence})
}

func (j *JSONL) LogCommandValidated(cmd core.Command, v core.Validation) {
	j.write(entry{Event: "command_validated", Source: cmd.Source.String(), Sequence: cmd.Sequence, Result: v.Result.String()})
}

func (j *JSONL) LogCommandRejected(cmd core.Command, v core.Validation) {
	j.write(entry{Event: "command_rejected", Source: cmd.Source.String(), Sequence: cmd.Sequence, Result: v.Result.String(), Reason: v.Reason})
}

func (j *JSONL) LogPrioritySelection(source core.Source, cmd core.Command) {
	j.write(entry{Event: "priority_selection", Source: source.String(), Sequence: cmd.Sequence})
}

func (j *JSONL) LogCommandForwarded(cmd core.Command) {
	p := cmd.Payload
	j.write(entry{Event: "command_forwarded", Source: cmd.Source.String(), Sequence: cmd.Sequence, Payload: &p})
}

func (j *JSONL) LogHeartbeat() {}

func (j *JSONL) LogStateTransition(from, to core.State, reason string) {
	j.write(entry{Event: "state_transition", From: string(from), To: string(to), Reason: reason})
}

func (j *JSONL) LogEmergencyStop(reason string) {
	j.write(entry{Event: "emergency_stop", Reason: reason})
}

func (j *JSONL) LogError(component, msg string) {
	j.write(entry{Event: "error", Component: component, Message: msg})
}

func (j *JSONL) LogInfo(component, msg string) {
	j.write(entry{Event: "info", Component: component, Message: msg})
}
