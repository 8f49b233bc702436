package geolifemanager

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTrailTools/geolifestore/business/data/geolife"
	"github.com/matryer/is"
)

func Test_activityIdFor(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		userId   string
		want     int64
		wantErr  bool
	}{
		{
			name:     "stem and user id concatenate",
			fileName: "20081023025304.plt",
			userId:   "010",
			want:     20081023025304010,
		},
		{
			name:     "deterministic for another user",
			fileName: "20081023025304.plt",
			userId:   "011",
			want:     20081023025304011,
		},
		{
			name:     "non-numeric stem is rejected",
			fileName: "notes.plt",
			userId:   "010",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := activityIdFor(tt.fileName, tt.userId)
			if tt.wantErr {
				if err == nil {
					t.Errorf("activityIdFor() produced no error, but we want one")
				}
				return
			}
			if err != nil {
				t.Errorf("activityIdFor() unexpected error: %v", err)
				return
			}
			if got != tt.want {
				t.Errorf("activityIdFor() = %d, want %d", got, tt.want)
			}
			// same inputs, same id
			again, _ := activityIdFor(tt.fileName, tt.userId)
			if again != got {
				t.Errorf("activityIdFor() not deterministic: %d then %d", got, again)
			}
		})
	}
}

// writeTestDataset builds a small dataset tree:
//
//	010: one labeled trajectory of 4 points, one malformed file
//	011: one trajectory over the point ceiling
//	012: no Trajectory folder
func writeTestDataset(t *testing.T, root string) {
	t.Helper()
	writeTestFile(t, filepath.Join(root, "010", labelsFileName), labelHeader+
		"2008/10/23 02:53:04\t2008/10/23 02:53:10\twalk\n")
	writeTestFile(t, filepath.Join(root, "010", trajectoryFolderName, "20081023025304.plt"), pltContent(
		"39.984702,116.318417,0,492,39744.1202314815,2008-10-23,02:53:04",
		"39.984683,116.318450,0,492,39744.1202546296,2008-10-23,02:53:06",
		"39.984686,116.318417,0,492,39744.1202777778,2008-10-23,02:53:08",
		"39.984688,116.318385,0,492,39744.1203009259,2008-10-23,02:53:10",
	))
	writeTestFile(t, filepath.Join(root, "010", trajectoryFolderName, "20090101000000.plt"), pltContent(
		"39.984702,116.318417,0,492",
	))

	longLines := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		longLines = append(longLines,
			fmt.Sprintf("39.984702,116.318417,0,492,39744.1202314815,2008-10-24,02:53:0%d", i))
	}
	writeTestFile(t, filepath.Join(root, "011", trajectoryFolderName, "20081024025300.plt"),
		pltContent(longLines...))

	writeTestFile(t, filepath.Join(root, "012", "readme.txt"), "no trajectories here\n")

	writeTestFile(t, filepath.Join(root, "labeled_ids.txt"), "010\n")
}

func TestInsertUsers(t *testing.T) {
	assert := is.New(t)
	db := openTestDb(t)
	root := t.TempDir()
	writeTestDataset(t, root)

	count, err := InsertUsers(testLogger(), db, root, filepath.Join(root, "labeled_ids.txt"))
	assert.NoErr(err)
	assert.Equal(count, 3)

	labeled, err := geolife.GetUser(db, "010")
	assert.NoErr(err)
	assert.True(labeled.IsLabeled)

	// 012 has no Trajectory folder but is still a user
	unlabeled, err := geolife.GetUser(db, "012")
	assert.NoErr(err)
	assert.True(!unlabeled.IsLabeled)
}

func TestLoadDataset(t *testing.T) {
	assert := is.New(t)
	db := openTestDb(t)
	root := t.TempDir()
	writeTestDataset(t, root)

	summary, err := LoadDataset(testLogger(), db, Config{
		DatasetRoot:      root,
		BatchSize:        3,
		MaxPointsPerFile: 5,
	}, nil)
	assert.NoErr(err)

	// 010 and 011 carry Trajectory folders, 012 does not
	assert.Equal(summary.Users, 2)
	assert.Equal(summary.Activities, 1)
	assert.Equal(summary.TrackPoints, 4)
	assert.Equal(len(summary.Skipped), 2)

	activity, err := geolife.GetActivity(db, 20081023025304010)
	assert.NoErr(err)
	assert.Equal(activity.UserId, "010")
	if activity.TransportationMode == nil {
		t.Fatal("expected exact label interval match to set transportation mode")
	}
	assert.Equal(*activity.TransportationMode, "walk")
	assert.True(activity.StartDateTime.Equal(testTime(t, pltTimeLayout, "2008-10-23 02:53:04")))
	assert.True(activity.EndDateTime.Equal(testTime(t, pltTimeLayout, "2008-10-23 02:53:10")))
	assert.Equal(len(activity.TrackPointIds), 4)

	stored, err := geolife.GetActivityTrackPoints(db, activity.Id)
	assert.NoErr(err)
	assert.Equal(len(stored), 4)
	for i, trackPoint := range stored {
		assert.Equal(trackPoint.Id, activity.TrackPointIds[i])
	}

	counts, err := geolife.GetCounts(db)
	assert.NoErr(err)
	assert.Equal(counts.Activities, int64(1))
	assert.Equal(counts.TrackPoints, int64(4))
}

func TestLoadDatasetSkipReasons(t *testing.T) {
	assert := is.New(t)
	db := openTestDb(t)
	root := t.TempDir()
	writeTestDataset(t, root)

	summary, err := LoadDataset(testLogger(), db, Config{
		DatasetRoot:      root,
		BatchSize:        3,
		MaxPointsPerFile: 5,
	}, nil)
	assert.NoErr(err)

	reasons := map[string]string{}
	for _, skipped := range summary.Skipped {
		reasons[skipped.UserId+"/"+skipped.File] = skipped.Reason
	}
	assert.Equal(len(reasons), 2)
	if !strings.Contains(reasons["010/20090101000000.plt"], "fields") {
		t.Errorf("malformed file reason = %q, want field count mention", reasons["010/20090101000000.plt"])
	}
	if !strings.Contains(reasons["011/20081024025300.plt"], "limit") {
		t.Errorf("over-ceiling reason = %q, want limit mention", reasons["011/20081024025300.plt"])
	}
}

func TestLoadDatasetRerunIsNotIdempotent(t *testing.T) {
	assert := is.New(t)
	db := openTestDb(t)
	root := t.TempDir()
	writeTestDataset(t, root)

	cfg := Config{DatasetRoot: root, BatchSize: 3, MaxPointsPerFile: 5}
	_, err := LoadDataset(testLogger(), db, cfg, nil)
	assert.NoErr(err)

	// the duplicate activity id trips the store's unique constraint and the
	// run fails fast; nothing is cleaned up automatically
	_, err = LoadDataset(testLogger(), db, cfg, nil)
	if err == nil {
		t.Fatal("expected second run over a populated store to fail")
	}
	if !strings.Contains(err.Error(), "user 010") {
		t.Errorf("error %q should identify the user", err.Error())
	}
}

func TestLoadDatasetMissingRoot(t *testing.T) {
	db := openTestDb(t)
	_, err := LoadDataset(testLogger(), db, Config{
		DatasetRoot: filepath.Join(t.TempDir(), "does-not-exist"),
	}, nil)
	if err == nil {
		t.Fatal("expected missing dataset root to be an error")
	}
}
