// Package transcribe turns an extracted audio track into timed segments.
//
// Two backends implement Transcriber: OpenAI Whisper over the
// verbose_json transcription endpoint, and a local WhisperX run. Both
// produce a Transcript whose segments are trimmed, stripped of empty text,
// and re-indexed so they can feed the dub planner directly. Transcripts are
// persisted as JSON in the session workspace.
package transcribe
