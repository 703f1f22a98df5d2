package models

// ResultKind tags the severity/category of a Result.
type ResultKind string

const (
	ResultAlarm     ResultKind = "alarm"
	ResultLog       ResultKind = "log"
	ResultError     ResultKind = "error"
	ResultHostEnd   ResultKind = "host_end"
	ResultHostStart ResultKind = "host_start"
)

// Result is a single finding (or lifecycle marker) produced during a scan.
// Ids are assigned by the scanner backend, are dense starting at 0, and
// are never reordered or mutated once appended.
type Result struct {
	ID      int        `json:"id"`
	Message *string    `json:"message,omitempty"`
	Host    *string    `json:"host,omitempty"`
	Port    *int       `json:"port,omitempty"`
	OID     *string    `json:"oid,omitempty"`
	Kind    ResultKind `json:"type"`
}
