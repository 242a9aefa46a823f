// Package macromem is a durable key-value store for scripts (macros) running
// on a host that can only create, fetch and overwrite named text units.
//
// The whole key space lives in one unit, the store unit, whose text is a
// script declaring a single object literal:
//
//	var memory = {
//	    "./_$Info": { ... },
//	    "GlobalKey": "value",
//	    "Join_Zoom": { "meetingId": "123" }
//	}
//
// Top-level keys are global entries and scope names side by side. A scope is
// the sub-map owned by one consuming unit, named after its identity (see
// ResolveIdentity), or any name passed to Memory.ForScope.
//
// Every mutation reads the whole store unit, decodes it, changes one entry,
// encodes it and overwrites the unit. Nothing serializes these steps, so two
// overlapping mutations race and the last Save wins, even when they touched
// different scopes. Scoping reduces collisions; it does not remove them.
//
// Open wires startup: it creates the store unit on first run and propagates
// the bootstrap snippet into other units (see package bootstrap).
package macromem
