package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the store and the bootstrap propagator.
const (
	VerbStoreCreated = "memory.store.created"
	VerbEntryWritten = "memory.entry.written"
	VerbEntryRemoved = "memory.entry.removed"
	VerbUnitPatched  = "memory.unit.patched"
	VerbUnitFailed   = "memory.unit.patch_failed"
)

// EntryEventInput describes one entry mutation.
type EntryEventInput struct {
	Actor      string
	Scope      string
	Global     bool
	Key        string
	Value      any
	Metadata   map[string]any
	OccurredAt time.Time
}

// UnitEventInput describes one propagation outcome for a content unit.
type UnitEventInput struct {
	Unit       string
	PassID     string
	Mode       string
	Err        error
	OccurredAt time.Time
}

// BuildStoreCreatedEvent reports first-run creation of the store unit.
func BuildStoreCreatedEvent(storeUnit, actor string) Event {
	return Event{
		Verb:       VerbStoreCreated,
		Actor:      strings.TrimSpace(actor),
		ObjectType: "memory.store",
		ObjectID:   fallback(strings.TrimSpace(storeUnit), "memory.store"),
	}
}

// BuildEntryWrittenEvent reports a write with the stored value.
func BuildEntryWrittenEvent(input EntryEventInput) Event {
	event := buildEntryEvent(VerbEntryWritten, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["value"] = input.Value
	return event
}

// BuildEntryRemovedEvent reports a delete with the previous value.
func BuildEntryRemovedEvent(input EntryEventInput) Event {
	event := buildEntryEvent(VerbEntryRemoved, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["old_value"] = input.Value
	return event
}

// BuildUnitPatchedEvent reports a bootstrap save outcome. A non-nil Err
// switches the verb to VerbUnitFailed.
func BuildUnitPatchedEvent(input UnitEventInput) Event {
	verb := VerbUnitPatched
	metadata := map[string]any{}
	if input.PassID != "" {
		metadata["pass_id"] = input.PassID
	}
	if input.Mode != "" {
		metadata["mode"] = input.Mode
	}
	if input.Err != nil {
		verb = VerbUnitFailed
		metadata["error"] = input.Err.Error()
	}
	return Event{
		Verb:       verb,
		ObjectType: "memory.unit",
		ObjectID:   fallback(strings.TrimSpace(input.Unit), "memory.unit"),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildEntryEvent(verb string, input EntryEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["key"] = input.Key
	metadata["global"] = input.Global
	if !input.Global && input.Scope != "" {
		metadata["scope"] = input.Scope
	}

	objectID := strings.TrimSpace(input.Key)
	if !input.Global && input.Scope != "" {
		objectID = input.Scope + "/" + objectID
	}

	return Event{
		Verb:       verb,
		Actor:      strings.TrimSpace(input.Actor),
		ObjectType: "memory.entry",
		ObjectID:   fallback(objectID, "memory.entry"),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
