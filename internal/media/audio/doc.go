// Package audio picks the audio stream speech is extracted from.
//
// Containers often carry several audio tracks: dubs, commentary, audio
// description. Select ranks them so transcription and the ducking mix read
// the main dialogue track:
//  1. Language matching the preferred source language
//  2. Not a commentary or description track (by title)
//  3. Default disposition
//  4. Stereo or wider, then lossless sources
//
// Earlier tracks win ties. When no stream matches the preferred language the
// ranking still applies to every audio stream.
package audio
