// Package preflight provides readiness checks for the external binaries,
// remote APIs, and filesystem paths that revoice depends on.
//
// These checks run in two contexts:
//   - "revoice serve" calls RunAll at startup and logs every failure so an
//     operator sees a doomed configuration before the first upload.
//   - "revoice status" and GET /api/status display CheckSystemDeps and the
//     individual results.
//
// Remote API checks only run for backends the config selects.
package preflight
