// Package api serves the dubbing stages over HTTP and defines the wire DTOs.
//
// Routes mirror the stage endpoints of the original service and take form
// fields (urlencoded or multipart):
//
//	POST /upload      user (optional), video (file)      -> 201 session
//	POST /transcribe  user                                -> transcript path
//	POST /translate   user, target_lang                   -> translated path
//	POST /generate    user                                -> final video + report summary
//	GET  /sessions                                        -> session list
//	GET  /sessions/{id}                                   -> one session
//	GET  /sessions/{id}/video                             -> final video download
//	GET  /api/status                                      -> dependency + store status
//
// Errors are JSON {"error": "..."} with the status chosen by
// services.HTTPStatus: input errors 400, unknown sessions 404, a busy
// session 409, everything else 500.
//
// DTOs use camelCase JSON tags and RFC3339 timestamps with milliseconds.
package api
