package build

import "errors"

// ErrSiteNotSet is returned by site-relative operations called before SetSite.
var ErrSiteNotSet = errors.New("phest: site is not set")
