// Package ffmpeg drives the ffmpeg binary for the three media operations the
// dubbing pipeline needs: extracting the original audio, normalizing
// synthesized clips to mono PCM WAV, and muxing the dubbed audio back onto
// the untouched video stream.
//
// Every operation writes to a hidden temporary file next to its destination
// and renames it into place only after ffmpeg exits cleanly, so a failed or
// interrupted run never leaves a truncated artifact behind.
package ffmpeg
