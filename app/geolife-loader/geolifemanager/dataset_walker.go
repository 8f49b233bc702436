package geolifemanager

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const trajectoryFolderName = "Trajectory"
const labelsFileName = "labels.txt"
const trajectoryFileSuffix = ".plt"

// userDirectory points at one user's subtree in the dataset
type userDirectory struct {
	userId         string
	path           string
	trajectoryPath string
	labelsPath     string
}

// forEachTrajectoryUser walks the dataset tree under root and invokes visit
// once for every directory containing a Trajectory subfolder. Users are
// visited in lexical path order; an error from visit stops the walk. A
// missing root is an error.
func forEachTrajectoryUser(root string, visit func(userDirectory) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || d.Name() != trajectoryFolderName {
			return nil
		}
		userPath := filepath.Dir(path)
		err = visit(userDirectory{
			userId:         filepath.Base(userPath),
			path:           userPath,
			trajectoryPath: path,
			labelsPath:     filepath.Join(userPath, labelsFileName),
		})
		if err != nil {
			return err
		}
		// nothing below Trajectory is another user
		return filepath.SkipDir
	})
}

// trajectoryFiles lists the names of the user's .plt files in lexical order
func (u userDirectory) trajectoryFiles() ([]string, error) {
	entries, err := os.ReadDir(u.trajectoryPath)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), trajectoryFileSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// listUserDirs enumerates the top-level subdirectories of root, one per
// user, regardless of whether they hold a Trajectory folder. Used by the
// users pass.
func listUserDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

// loadLabeledIds reads the labeled-id list file, one user id per line
func loadLabeledIds(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ids := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids[id] = true
		}
	}
	return ids, scanner.Err()
}
