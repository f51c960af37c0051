// Package sanitizer provides input normalization for booking data.
//
// All functions are idempotent - applying them multiple times produces the same
// result. Invalid input is handled gracefully by returning the best-effort
// normalized string rather than an error; validation happens afterwards.
//
// Normalization includes:
//   - Identifiers: trim whitespace, strip the surrounding braces CRM exports add
//     to GUIDs ("{ABC-...}" becomes "abc-..."), lowercase
//   - Names: collapse whitespace, trim leading/trailing spaces
package sanitizer
