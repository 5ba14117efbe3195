// Package translate renders transcript segments into a target language with
// an OpenAI-compatible chat completion model.
//
// The Translator is built once from config and injected into the pipeline.
// Transient API failures (429, 5xx, timeouts on the wire) are retried with
// capped exponential backoff; an empty completion is a translation error.
package translate
