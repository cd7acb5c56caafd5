package version

// Version is set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/phest/internal/version.Version=v0.3.0".
var Version = "dev"

// Build metadata, also injected via ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by `phest --version`.
func String() string {
	return "phest " + Version + " (commit " + GitCommit + ", built " + BuildTime + ")"
}
