// Package language normalizes the language identifiers that flow between the
// transcription, translation, and synthesis capabilities.
//
// Transcription backends report languages as English names ("german") or
// ISO codes, users pass tags like "de" or "de-AT", and container metadata
// wants ISO 639-2. Everything is normalized to ISO 639-1 base codes here,
// with display names and matching provided by golang.org/x/text.
package language
