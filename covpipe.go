// Package covpipe holds module-wide metadata.
package covpipe

// Version is the covpipe release version.
const Version = "0.2.0"
