// Package host defines the content-unit contract the memory store is built on.
//
// A host keeps named text units (macros) and exposes exactly two calls:
//   - Get lists units, or fetches one by name when GetRequest.Name is set.
//   - Save creates or overwrites a unit with the full text supplied.
//
// There is no partial update, append or delete. Every higher layer in this
// module (the codec, the scoped engine and the bootstrap propagator) is
// expressed in terms of whole-unit reads and overwrites.
//
// MemoryHost is an in-process implementation used by tests and examples.
// Each Get and Save is atomic on its own, nothing more: read-modify-write
// sequences issued by callers are not serialized.
package host
