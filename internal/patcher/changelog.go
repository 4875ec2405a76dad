package patcher

// ChangeKind tags a ChangeRecord.
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// ChangeRecord describes one change an operation made to the buffer.
type ChangeRecord struct {
	Kind        ChangeKind
	Description string
}

// String renders the record as "added: <description>" or "modified: <description>".
func (c ChangeRecord) String() string {
	return c.Kind.String() + ": " + c.Description
}

// Outcome is what happened when an operation was applied.
type Outcome int

const (
	// Applied means the buffer changed.
	Applied Outcome = iota
	// Skipped means the operation was not applicable: anchor absent or already applied.
	Skipped
	// Failed means the operation itself was broken, e.g. an invalid pattern.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is recorded for every operation the engine applies, in order.
type Result struct {
	Kind    string
	Op      string
	Outcome Outcome
	// Reason explains a skip.
	Reason string
	Err    error
	Change *ChangeRecord
}
