package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"Site", Site("docs"), KeySite, "docs"},
		{"Lang", Lang("ja"), KeyLang, "ja"},
		{"BuildType", BuildType("production"), KeyBuildType, "production"},
		{"BuildID", BuildID("b1"), KeyBuildID, "b1"},
		{"Plugin", Plugin("sitemap"), KeyPlugin, "sitemap"},
		{"Path", Path("/tmp/x"), KeyPath, "/tmp/x"},
		{"Section", Section("builderror"), KeySection, "builderror"},
		{"Hash", Hash("abc"), KeyHash, "abc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.attr.Key != c.wantKey {
				t.Errorf("key = %q, want %q", c.attr.Key, c.wantKey)
			}
			if got := c.attr.Value.String(); got != c.wantVal {
				t.Errorf("value = %q, want %q", got, c.wantVal)
			}
		})
	}
}

func TestDurationAndError(t *testing.T) {
	d := Duration(1500 * time.Microsecond)
	if d.Key != KeyDurationMS || d.Value.Float64() != 1.5 {
		t.Errorf("Duration() = %v", d)
	}

	if e := Error(nil); e.Value.String() != "" {
		t.Errorf("Error(nil) = %q, want empty", e.Value.String())
	}
	if e := Error(errors.New("boom")); e.Key != KeyError || e.Value.String() != "boom" {
		t.Errorf("Error() = %v", e)
	}
}
