package version

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func UserAgent() string {
	return "kelock/" + Version
}
