// Package main provides the moviesweep command, which deletes movies from a
// Plex/Radarr library once their retention window has passed.
//
// Usage:
//
//	# Preview what a sweep would delete
//	moviesweep run --dry-run
//
//	# Sweep only the 4K library
//	moviesweep run --tier 4k
//
//	# Run scheduled sweeps and serve the audit API
//	moviesweep serve --listen :8080
//
//	# Check a configuration file
//	moviesweep validate --config config.yaml
package main

func main() {
	Execute()
}
