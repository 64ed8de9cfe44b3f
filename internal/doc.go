// Package internal contains helper utilities that are private to tokenauth,
// such as OAuth state generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: pure-function flow orchestrators for every Engine operation
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenauth API.
//   - Be imported by any package outside the tokenauth module.
package internal
