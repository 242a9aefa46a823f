// Package bootstrap propagates the memory bootstrap snippet into other
// content units.
//
// A unit is bootstrapped when its text carries three statements: the host
// capability import, the memory module import and the assignment of the
// caller identity. Each is detected by its own probe (see Probe). Units
// missing any of them are patched by replacing their leading run of marker
// statements with CanonicalBlock, leaving the rest of the text verbatim.
//
// Which units are patched is decided by a Policy built from a Mode. The
// module unit itself and the store unit are never touched.
//
// Propagator.Propagate fans out one Save per selected unit and returns only
// after every Save has settled. A failed Save is recorded in the Report and
// never retried; it does not stop the others.
package bootstrap
