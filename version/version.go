package version

var (
	Ver            = "0.3.0"
	Branch         = ""
	GitCommitHash  = "" // ldflags
	BuildTimestamp = "" // ldflags
)
