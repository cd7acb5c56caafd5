package build

import (
	"path/filepath"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

// SourcePath returns <sitesRoot>/<site>/source.
func (c *Context) SourcePath() (string, error) {
	if c.site == "" {
		return "", siteNotSet("source path")
	}
	return filepath.Join(c.sitesRoot, c.site, "source"), nil
}

// OutputPath returns the output directory for the current language and
// build type.
func (c *Context) OutputPath() (string, error) {
	return c.OutputPathFor("", "")
}

// OutputPathFor is OutputPath with lang and buildType overridden. Empty
// arguments fall back to the current values.
func (c *Context) OutputPathFor(lang, buildType string) (string, error) {
	if c.site == "" {
		return "", siteNotSet("output path")
	}
	return filepath.Join(c.sitesRoot, c.site, c.BuildDirNameFor(lang, buildType)), nil
}

// BuildDirName returns the site-relative output directory:
// output/<lang>/<buildType>, or output/<buildType> without a language.
func (c *Context) BuildDirName() string {
	return c.BuildDirNameFor("", "")
}

// BuildDirNameFor is BuildDirName with overrides; see OutputPathFor.
func (c *Context) BuildDirNameFor(lang, buildType string) string {
	if lang == "" {
		lang = c.lang
	}
	if buildType == "" {
		buildType = c.buildType
	}
	if lang == "" {
		return filepath.Join("output", buildType)
	}
	return filepath.Join("output", lang, buildType)
}

func siteNotSet(op string) error {
	return ferrors.ValidationError(op + " needs a site").WithCause(ErrSiteNotSet).Build()
}
