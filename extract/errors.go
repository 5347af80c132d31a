package extract

import (
	"errors"
	"fmt"
)

// ErrNoGraph indicates the page carries no embedded entity graph.
var ErrNoGraph = errors.New("extract: no embedded entity graph")

// ExtractionMiss reports a single field that could not be located. The
// field keeps the sentinel and the rest of the record is unaffected.
type ExtractionMiss struct {
	Field string
	Seq   int
}

func (e *ExtractionMiss) Error() string {
	return fmt.Sprintf("extract: %s not found for book #%d", e.Field, e.Seq+1)
}

// RecordFailure reports a record whose extraction aborted; the record is
// replaced by an all-sentinel one.
type RecordFailure struct {
	Year  int
	Seq   int
	Cause error
}

func (e *RecordFailure) Error() string {
	return fmt.Errorf("extract: book #%d (%d) failed: %w", e.Seq+1, e.Year, e.Cause).Error()
}

func (e *RecordFailure) Unwrap() error {
	return e.Cause
}

// MissedField returns the field name when err is an ExtractionMiss.
func MissedField(err error) (string, bool) {
	var miss *ExtractionMiss
	if errors.As(err, &miss) {
		return miss.Field, true
	}
	return "", false
}

// IsRecordFailure reports whether err aborted a whole record.
func IsRecordFailure(err error) bool {
	var failure *RecordFailure
	return errors.As(err, &failure)
}
