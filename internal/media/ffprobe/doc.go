// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Prober: runs ffprobe (or an injected runner in tests)
//   - Result: parsed ffprobe output containing streams and format metadata
//
// Duration is the probing capability the dubbing pipeline consumes; it
// prefers the container duration and falls back to the longest stream.
package ffprobe
