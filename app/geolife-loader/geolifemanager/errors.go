package geolifemanager

import "fmt"

// parseError describes a structural problem in a trajectory or label file:
// wrong field count, unparsable timestamp, unusable file name. It is scoped
// to one file; the file loop skips the file and continues.
type parseError struct {
	File string
	Line int
	Err  error
}

func (e *parseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("in file %v, line %v: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("in file %v: %v", e.File, e.Err)
}

func (e *parseError) Unwrap() error {
	return e.Err
}

// fileTooLongError reports a trajectory file whose data line count exceeds
// the per-file ceiling. The file is skipped entirely: no activity, no
// trackpoints. This is a deliberate scope limit, not a failure.
type fileTooLongError struct {
	File   string
	Points int
	Limit  int
}

func (e *fileTooLongError) Error() string {
	return fmt.Sprintf("file %v has %d trackpoints, over the %d per-file limit", e.File, e.Points, e.Limit)
}
