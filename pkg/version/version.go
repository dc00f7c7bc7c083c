package version

// Version is the build version string, overridden with -ldflags "-X".
var Version = "v0.4.0"
