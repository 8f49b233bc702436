package geolifemanager

import (
	"errors"
	"path/filepath"
	"testing"
)

const labelHeader = "Start Time\tEnd Time\tTransportation Mode\n"

func Test_loadLabelIndex(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSize int
		wantErr  bool
	}{
		{
			name: "parses rows after the header",
			content: labelHeader +
				"2008/10/23 10:00:00\t2008/10/23 10:05:00\twalk\n" +
				"2008/10/23 11:00:00\t2008/10/23 11:30:00\tbus\n",
			wantSize: 2,
		},
		{
			name: "duplicate interval keeps the last mode",
			content: labelHeader +
				"2008/10/23 10:00:00\t2008/10/23 10:05:00\twalk\n" +
				"2008/10/23 10:00:00\t2008/10/23 10:05:00\ttaxi\n",
			wantSize: 1,
		},
		{
			name:    "wrong field count fails the file",
			content: labelHeader + "2008/10/23 10:00:00\twalk\n",
			wantErr: true,
		},
		{
			name:    "unparsable timestamp fails the file",
			content: labelHeader + "2008-10-23 10:00:00\t2008/10/23 10:05:00\twalk\n",
			wantErr: true,
		},
		{
			name:     "header only yields empty index",
			content:  labelHeader,
			wantSize: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), labelsFileName)
			writeTestFile(t, path, tt.content)

			index, err := loadLabelIndex(path)
			if tt.wantErr {
				var fileErr *parseError
				if !errors.As(err, &fileErr) {
					t.Errorf("loadLabelIndex() error = %v, want parseError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("loadLabelIndex() unexpected error: %v", err)
				return
			}
			if len(index) != tt.wantSize {
				t.Errorf("index size = %d, want %d", len(index), tt.wantSize)
			}
		})
	}
}

func Test_loadLabelIndexMissingFile(t *testing.T) {
	index, err := loadLabelIndex(filepath.Join(t.TempDir(), labelsFileName))
	if err != nil {
		t.Fatalf("missing label file must not be an error, got: %v", err)
	}
	if len(index) != 0 {
		t.Errorf("index size = %d, want 0", len(index))
	}
}

func Test_labelIndex_modeFor(t *testing.T) {
	path := filepath.Join(t.TempDir(), labelsFileName)
	writeTestFile(t, path, labelHeader+
		"2008/10/23 10:00:00\t2008/10/23 10:05:00\twalk\n")
	index, err := loadLabelIndex(path)
	if err != nil {
		t.Fatalf("loadLabelIndex() unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		start string
		end   string
		want  *string
	}{
		{
			name:  "exact interval matches",
			start: "2008-10-23 10:00:00",
			end:   "2008-10-23 10:05:00",
			want:  stringPointer("walk"),
		},
		{
			name:  "end off by one second does not match",
			start: "2008-10-23 10:00:00",
			end:   "2008-10-23 10:05:01",
			want:  nil,
		},
		{
			name:  "start off by one second does not match",
			start: "2008-10-23 09:59:59",
			end:   "2008-10-23 10:05:00",
			want:  nil,
		},
		{
			name:  "containment is not a match",
			start: "2008-10-23 10:01:00",
			end:   "2008-10-23 10:04:00",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := index.modeFor(
				testTime(t, pltTimeLayout, tt.start),
				testTime(t, pltTimeLayout, tt.end))
			if (got == nil) != (tt.want == nil) {
				t.Errorf("modeFor() = %v, want %v", got, tt.want)
				return
			}
			if got != nil && *got != *tt.want {
				t.Errorf("modeFor() = %q, want %q", *got, *tt.want)
			}
		})
	}
}

func stringPointer(s string) *string {
	return &s
}
