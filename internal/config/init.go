package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

const initHeader = `# phest configuration
#
# Relative paths are resolved against the directory of this file.
# ${VAR} references are expanded from the environment; .env and .env.local
# next to this file are loaded first without overriding existing variables.
#
# fingerprint.backend: file (one <site>.dat per site) or sqlite
# watch.strict: report missing watched files as build errors
`

// Init writes a default configuration file. An existing file is only
// replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	cfg := Default()
	cfg.Build.Site = "example"
	cfg.Fingerprint.Path = ""

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ferrors.InternalError("marshal default configuration").WithCause(err).Build()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.FileSystemError("create configuration directory").WithCause(err).WithContext("path", dir).Build()
		}
	}
	// #nosec G306 - configuration is not secret
	if err := os.WriteFile(path, append([]byte(initHeader), data...), 0o644); err != nil {
		return ferrors.FileSystemError("write configuration file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
