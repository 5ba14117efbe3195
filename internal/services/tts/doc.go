// Package tts adapts text-to-speech backends to the dub.Synthesizer
// capability.
//
// Backends render encoded audio for one attempt (OpenAI speech via
// go-openai, or the edge-tts CLI). ClipSynthesizer then normalizes the file
// to mono PCM at the track sample rate with ffmpeg and decodes it, so the
// rate search always measures the exact samples that end up in the track.
//
// Rates stay signed integers everywhere; FormatRate renders the "+15%"
// literal edge-tts expects only at the command-line boundary.
package tts
