package state

import "time"

// OperationEntry, bir işlemin başarısızlığını tanı amaçlı kaydeder.
// Motor bu kayıtları hiçbir zaman geri okumaz.
type OperationEntry struct {
	ID              string         `json:"id"`
	RunID           string         `json:"run_id"`
	Target          string         `json:"target,omitempty"`
	Operation       string         `json:"operation"`
	SimplifiedError string         `json:"error"`
	Trace           string         `json:"trace,omitempty"`
	Arguments       map[string]any `json:"arguments,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// ChangeEntry is one change waiting for a reset.
type ChangeEntry struct {
	Resource string `json:"resource"`
	Pending  string `json:"pending"`
	Scope    string `json:"scope,omitempty"`
}

// OperationLog is the append-only file of failures.
type OperationLog struct {
	Version string           `json:"version"`
	Entries []OperationEntry `json:"entries"`
}

// ChangeLog, son çalışmanın bekleyen değişiklikleridir; her çalışmada baştan yazılır.
type ChangeLog struct {
	RunID   string        `json:"run_id"`
	Target  string        `json:"target,omitempty"`
	Updated time.Time     `json:"updated"`
	Pending []ChangeEntry `json:"pending"`
}
