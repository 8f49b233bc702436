package geolifemanager

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenTrailTools/geolifestore/business/data/geolife"
)

// pltTimeLayout is the timestamp format formed by joining a trajectory
// line's date and time fields.
const pltTimeLayout = "2006-01-02 15:04:05"

// pltPreambleLines is the fixed header every .plt file carries before its
// first data line.
const pltPreambleLines = 6

// pltFieldCount covers lat, lon, a reserved field, altitude, fractional day
// count, date and time.
const pltFieldCount = 7

// pltFile is a parsed view over one trajectory log. It offers two views on
// the same field interpretation: bounds, which derives the activity's start
// and end timestamps from the first and last data lines, and a restartable
// nextPoint stream over every data line. Data lines are held in memory;
// the per-file ceiling keeps that bounded.
type pltFile struct {
	path      string
	dataLines []string
	next      int
}

// openPLTFile reads the trajectory file at path, discards the preamble and
// keeps the data lines. Files with more than maxPoints data lines are
// rejected whole with a fileTooLongError: no partial records.
func openPLTFile(path string, maxPoints int) (*pltFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &parseError{File: path, Err: err}
	}
	defer f.Close()

	var dataLines []string
	line := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line++
		if line <= pltPreambleLines {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		dataLines = append(dataLines, text)
	}
	if err = scanner.Err(); err != nil {
		return nil, &parseError{File: path, Line: line, Err: err}
	}
	if len(dataLines) > maxPoints {
		return nil, &fileTooLongError{File: path, Points: len(dataLines), Limit: maxPoints}
	}
	return &pltFile{path: path, dataLines: dataLines}, nil
}

// pointCount returns the number of data lines in the file
func (p *pltFile) pointCount() int {
	return len(p.dataLines)
}

// bounds derives the activity's start and end timestamps from the date and
// time fields of the first and last data lines. Used before any trackpoint
// is persisted.
func (p *pltFile) bounds() (time.Time, time.Time, error) {
	if len(p.dataLines) == 0 {
		return time.Time{}, time.Time{},
			&parseError{File: p.path, Err: errors.New("no trackpoint lines after preamble")}
	}
	first, err := p.parseLine(p.dataLines[0], pltPreambleLines+1)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	last, err := p.parseLine(p.dataLines[len(p.dataLines)-1], pltPreambleLines+len(p.dataLines))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return first.DateTime, last.DateTime, nil
}

// reset rewinds the point stream to the first data line
func (p *pltFile) reset() {
	p.next = 0
}

// nextPoint returns the next trackpoint in file order, io.EOF after the
// last one.
func (p *pltFile) nextPoint() (*geolife.TrackPoint, error) {
	if p.next >= len(p.dataLines) {
		return nil, io.EOF
	}
	trackPoint, err := p.parseLine(p.dataLines[p.next], pltPreambleLines+1+p.next)
	if err != nil {
		return nil, err
	}
	p.next++
	return trackPoint, nil
}

// parseLine interprets one data line. Both views go through here so the
// field offsets are interpreted exactly once.
func (p *pltFile) parseLine(line string, lineNumber int) (*geolife.TrackPoint, error) {
	fields := strings.Split(line, ",")
	if len(fields) != pltFieldCount {
		return nil, &parseError{File: p.path, Line: lineNumber,
			Err: fmt.Errorf("expected %d comma-separated fields, found %d", pltFieldCount, len(fields))}
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, &parseError{File: p.path, Line: lineNumber, Err: fmt.Errorf("latitude: %w", err)}
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, &parseError{File: p.path, Line: lineNumber, Err: fmt.Errorf("longitude: %w", err)}
	}
	// fields[2] is unused in the source format
	altitude, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, &parseError{File: p.path, Line: lineNumber, Err: fmt.Errorf("altitude: %w", err)}
	}
	dateDays, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, &parseError{File: p.path, Line: lineNumber, Err: fmt.Errorf("day count: %w", err)}
	}
	dateTime, err := time.Parse(pltTimeLayout, fields[5]+" "+fields[6])
	if err != nil {
		return nil, &parseError{File: p.path, Line: lineNumber, Err: err}
	}
	return &geolife.TrackPoint{
		Lat:      lat,
		Lon:      lon,
		Altitude: altitude,
		DateDays: dateDays,
		DateTime: dateTime,
	}, nil
}
