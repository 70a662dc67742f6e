// Package httpapi exposes an authcore engine over HTTP.
//
// Routes live under /api/auth. Session tokens travel in two HTTP-only cookies:
// accessToken (path /) and refreshToken (path /api/auth). Successful calls answer with
// {"message": ...}; failures are RFC 7807 problem documents with fixed wording, so two
// rejections of the same kind produce identical bodies.
package httpapi
