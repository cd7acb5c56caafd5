package build

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

// CollectSourceFiles returns the regular files below root in lexical walk
// order. Entries whose base name matches an ignore glob are skipped; a
// matching directory is skipped with its contents. A missing root yields
// an empty list and a not_found error.
func CollectSourceFiles(root string, ignore []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("source directory does not exist").
				WithCause(err).
				WithContext("path", root).
				Build()
		}
		return nil, ferrors.FileSystemError("stat source directory").WithCause(err).WithContext("path", root).Build()
	}
	if !info.IsDir() {
		return nil, ferrors.ValidationError("source path is not a directory").WithContext("path", root).Build()
	}

	for _, pattern := range ignore {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, ferrors.ConfigError("invalid ignore pattern").
				WithCause(err).
				WithContext("pattern", pattern).
				Build()
		}
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p != root && ignored(d.Name(), ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.FileSystemError("walk source directory").WithCause(err).WithContext("path", root).Build()
	}
	return files, nil
}

func ignored(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
