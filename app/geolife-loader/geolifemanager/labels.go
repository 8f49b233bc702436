package geolifemanager

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// labelTimeLayout is the timestamp format used inside labels.txt. Note the
// slashes; trajectory files use dashes.
const labelTimeLayout = "2006/01/02 15:04:05"

const labelFieldCount = 3

// labelInterval keys the label index. Matching is on the exact pair: both
// bounds must equal a label row's bounds to the second for a mode to attach.
type labelInterval struct {
	start time.Time
	end   time.Time
}

// labelIndex maps a user's labeled intervals to transportation modes. Built
// once per user from labels.txt, consulted during the activity pass, never
// persisted.
type labelIndex map[labelInterval]string

// loadLabelIndex parses a user's labels.txt into a labelIndex. A missing
// file is not an error: the index is empty and every activity of that user
// ends up unlabeled. Duplicate intervals overwrite, last row wins.
func loadLabelIndex(path string) (labelIndex, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return labelIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	index := labelIndex{}
	line := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line++
		if line == 1 {
			// header
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != labelFieldCount {
			return nil, &parseError{File: path, Line: line,
				Err: fmt.Errorf("expected %d tab-separated fields, found %d", labelFieldCount, len(fields))}
		}
		start, err := time.Parse(labelTimeLayout, strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, &parseError{File: path, Line: line, Err: err}
		}
		end, err := time.Parse(labelTimeLayout, strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, &parseError{File: path, Line: line, Err: err}
		}
		index[labelInterval{start: start, end: end}] = strings.TrimSpace(fields[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return index, nil
}

// modeFor resolves the transportation mode for an activity's derived bounds.
// Exact interval match only: any mismatch on either bound, even by a second,
// yields nil. No containment or nearest-interval fallback is performed.
func (l labelIndex) modeFor(start, end time.Time) *string {
	if mode, found := l[labelInterval{start: start, end: end}]; found {
		return &mode
	}
	return nil
}
