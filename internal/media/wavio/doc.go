// Package wavio decodes and encodes PCM WAV files as mono float samples
// normalized to [-1, 1]. Writes are atomic: data lands in a temporary file
// next to the destination and is renamed into place only after the encoder
// has finalized the header.
package wavio
