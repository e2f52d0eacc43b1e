package version

// Current defines the application version.
// It defaults to "dev" but is overwritten by the Makefile using -ldflags.
var Current = "dev"

const AppName = "vapora"

// UserAgent is sent with every directory request.
func UserAgent() string {
	return AppName + "/" + Current
}
