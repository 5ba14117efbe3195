// Package services defines shared utilities consumed by the pipeline stages
// and the external capability adapters.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (input, synthesis, mux, ...) into session failure kinds and
//     HTTP status codes.
//
// Capability adapters live in subpackages (transcribe, translate, tts,
// whisperx) and always return errors tagged with one of these markers.
package services
