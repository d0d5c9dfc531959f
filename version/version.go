package version

// Version is set by the linker at build time.
var Version = "0.0.0"
