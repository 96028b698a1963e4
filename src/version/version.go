package version

// Version is the release version, overridden at build time with
// -ldflags "-X auto-backup/src/version.Version=<tag>".
var Version = "0.3.0-dev"
