// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunAuthenticate, RunReissue, RunLogout)
// accepts a typed dependency struct and returns a result carrying either the
// payload or a classified failure kind. The root Engine maps failure kinds to
// public errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec, the refresh and revocation
// stores and the identity resolver. They do NOT own any of these resources;
// ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenauth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
//   - Coerce a store failure into an authentication decision.
package flows
