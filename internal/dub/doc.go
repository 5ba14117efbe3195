// Package dub fits synthesized speech back onto the timeline of the source
// media.
//
// Given translated, time-stamped segments and the media duration it builds a
// placement plan, synthesizes one clip per segment while correcting the
// speaking rate until the clip fits its window, assembles the accepted clips
// with silence into a single track spanning the media, and optionally ducks
// the original audio underneath the result.
//
// Duration mismatches are recovered locally: a clip that never fits is used
// anyway and reported as degraded. Capability failures and malformed input
// are returned as errors tagged with services.ErrSynthesis or
// services.ErrInput, and no track is written.
package dub
