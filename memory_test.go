package macromem

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/goliatone/go-macromem/pkg/activity"
	"github.com/goliatone/go-macromem/pkg/host"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newStoreHost(t *testing.T, extra ...host.Unit) *host.MemoryHost {
	t.Helper()
	text, err := Encode(NewStoreDocument())
	if err != nil {
		t.Fatalf("encode skeleton: %v", err)
	}
	units := append([]host.Unit{{Name: DefaultStorageUnitName, Content: text, Active: false}}, extra...)
	return host.NewMemoryHost(units...)
}

func newScriptMemory(t *testing.T, h host.Host, script string, opts ...Option) *Memory {
	t.Helper()
	opts = append([]Option{WithLocator("file:///macros/" + script + ".js")}, opts...)
	m, err := New(h, DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return m
}

func storedDocument(t *testing.T, h *host.MemoryHost) Document {
	t.Helper()
	text, ok := h.Content(DefaultStorageUnitName)
	if !ok {
		t.Fatalf("store unit missing")
	}
	doc, err := Decode(text)
	if err != nil {
		t.Fatalf("decode store: %v", err)
	}
	return doc
}

func TestNewRequiresHost(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); err == nil {
		t.Fatalf("expected error for nil host")
	}
}

func TestScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	h := newStoreHost(t)
	a := newScriptMemory(t, h, "ScriptA")
	b := newScriptMemory(t, h, "ScriptB")

	if _, err := a.Write(ctx, "shared", "va"); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if _, err := b.Write(ctx, "shared", "vb"); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if got, err := a.Read(ctx, "shared"); err != nil || got != "va" {
		t.Fatalf("expected va, got %v (%v)", got, err)
	}
	if got, err := b.Read(ctx, "shared"); err != nil || got != "vb" {
		t.Fatalf("expected vb, got %v (%v)", got, err)
	}
	if got, err := a.ForScope("ScriptB").Read(ctx, "shared"); err != nil || got != "vb" {
		t.Fatalf("expected vb through ForScope, got %v (%v)", got, err)
	}

	doc := storedDocument(t, h)
	want := map[string]any{"shared": "va"}
	if diff := cmp.Diff(want, doc["ScriptA"]); diff != "" {
		t.Fatalf("unexpected ScriptA scope (-want +got):\n%s", diff)
	}
	if _, ok := doc[InfoKey]; !ok {
		t.Fatalf("info record lost after writes")
	}
}

func TestReadMissingKey(t *testing.T) {
	ctx := context.Background()
	m := newScriptMemory(t, newStoreHost(t), "ScriptA")

	_, err := m.Read(ctx, "absent")
	var notFound *KeyNotFoundError
	if !errors.As(err, &notFound) || !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected KeyNotFoundError, got %v", err)
	}
	if notFound.Scope != "ScriptA" || notFound.Key != "absent" || notFound.Global() {
		t.Fatalf("unexpected error fields %+v", notFound)
	}

	if _, err := m.Write(ctx, "present", 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.Read(ctx, "absent"); !errors.As(err, &notFound) || notFound.Scope != "ScriptA" {
		t.Fatalf("expected scoped KeyNotFoundError, got %v", err)
	}

	_, err = m.ReadGlobal(ctx, "absent")
	if !errors.As(err, &notFound) || !notFound.Global() {
		t.Fatalf("expected global KeyNotFoundError, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	h := newStoreHost(t)
	m := newScriptMemory(t, h, "ScriptA")

	if _, err := m.Remove(ctx, "absent"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for missing scope, got %v", err)
	}
	if _, err := m.Write(ctx, "k", "v"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.Remove(ctx, "absent"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for missing key, got %v", err)
	}
	savesBefore := len(h.SavesFor(DefaultStorageUnitName))
	if _, err := m.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := len(h.SavesFor(DefaultStorageUnitName)) - savesBefore; got != 1 {
		t.Fatalf("expected one save per remove, got %d", got)
	}
	if _, err := m.Read(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected removed key to be gone, got %v", err)
	}

	if _, err := m.RemoveGlobal(ctx, "ExampleKey"); err != nil {
		t.Fatalf("remove global: %v", err)
	}
	if _, err := m.RemoveGlobal(ctx, "ExampleKey"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound on second global remove, got %v", err)
	}
}

func TestFailedLookupsDoNotSave(t *testing.T) {
	ctx := context.Background()
	h := newStoreHost(t)
	m := newScriptMemory(t, h, "ScriptA")

	_, _ = m.Read(ctx, "absent")
	_, _ = m.Remove(ctx, "absent")
	_, _ = m.Print(ctx)
	if saves := h.Saves(); len(saves) != 0 {
		t.Fatalf("expected no saves, got %d", len(saves))
	}
}

func TestPrint(t *testing.T) {
	ctx := context.Background()
	m := newScriptMemory(t, newStoreHost(t), "ScriptA")

	_, err := m.Print(ctx)
	var notFound *KeyNotFoundError
	if !errors.As(err, &notFound) || !notFound.Global() || notFound.Key != "ScriptA" {
		t.Fatalf("expected scope-not-found error, got %v", err)
	}

	if _, err := m.Write(ctx, "a", "1"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.Write(ctx, "b", true); err != nil {
		t.Fatalf("write: %v", err)
	}
	scope, err := m.Print(ctx)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if diff := cmp.Diff(Document{"a": "1", "b": true}, scope); diff != "" {
		t.Fatalf("unexpected scope (-want +got):\n%s", diff)
	}

	all, err := m.PrintGlobal(ctx)
	if err != nil {
		t.Fatalf("print global: %v", err)
	}
	if _, ok := all["ScriptA"]; !ok {
		t.Fatalf("expected scope in global print, got %v", all)
	}
}

func TestGlobalAndLocalKeysAreSeparate(t *testing.T) {
	ctx := context.Background()
	m := newScriptMemory(t, newStoreHost(t), "ScriptA")

	if _, err := m.WriteGlobal(ctx, "color", "red"); err != nil {
		t.Fatalf("write global: %v", err)
	}
	if _, err := m.Write(ctx, "color", "blue"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, _ := m.ReadGlobal(ctx, "color"); got != "red" {
		t.Fatalf("expected global red, got %v", got)
	}
	if got, _ := m.Read(ctx, "color"); got != "blue" {
		t.Fatalf("expected local blue, got %v", got)
	}
	if got, _ := m.ForScope("ScriptB").ReadGlobal(ctx, "color"); got != "red" {
		t.Fatalf("expected global red through another scope, got %v", got)
	}
}

func TestScopeConflict(t *testing.T) {
	ctx := context.Background()
	h := newStoreHost(t)
	m := newScriptMemory(t, h, "ScriptA")

	if _, err := m.WriteGlobal(ctx, "ScriptA", "plain text"); err != nil {
		t.Fatalf("write global: %v", err)
	}
	saves := len(h.Saves())

	if _, err := m.Write(ctx, "k", "v"); !errors.Is(err, ErrScopeConflict) {
		t.Fatalf("expected ErrScopeConflict on write, got %v", err)
	}
	if _, err := m.Read(ctx, "k"); !errors.Is(err, ErrScopeConflict) {
		t.Fatalf("expected ErrScopeConflict on read, got %v", err)
	}
	if _, err := m.Print(ctx); !errors.Is(err, ErrScopeConflict) {
		t.Fatalf("expected ErrScopeConflict on print, got %v", err)
	}
	if len(h.Saves()) != saves {
		t.Fatalf("conflicting write must not save")
	}
	if got, _ := m.ReadGlobal(ctx, "ScriptA"); got != "plain text" {
		t.Fatalf("global value overwritten: %v", got)
	}
}

func TestInfo(t *testing.T) {
	info, err := newScriptMemory(t, newStoreHost(t), "ScriptA").Info(context.Background())
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info["Guide"] != GuideURL {
		t.Fatalf("unexpected info %v", info)
	}
}

func TestCorruptStore(t *testing.T) {
	ctx := context.Background()
	h := host.NewMemoryHost(host.Unit{Name: DefaultStorageUnitName, Content: "var memory = {oops"})
	m := newScriptMemory(t, h, "ScriptA")

	if _, err := m.Read(ctx, "k"); !errors.Is(err, ErrStoreCorrupt) {
		t.Fatalf("expected ErrStoreCorrupt, got %v", err)
	}
	if _, err := m.Write(ctx, "k", "v"); !errors.Is(err, ErrStoreCorrupt) {
		t.Fatalf("expected ErrStoreCorrupt, got %v", err)
	}
	if len(h.Saves()) != 0 {
		t.Fatalf("corrupt store must not be overwritten")
	}
}

func TestMissingStoreUnit(t *testing.T) {
	m := newScriptMemory(t, host.NewMemoryHost(), "ScriptA")
	if _, err := m.Read(context.Background(), "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveFailureIsReturned(t *testing.T) {
	h := newStoreHost(t)
	boom := errors.New("flash full")
	h.FailSaves(DefaultStorageUnitName, boom)
	m := newScriptMemory(t, h, "ScriptA")

	if _, err := m.Write(context.Background(), "k", "v"); !errors.Is(err, boom) {
		t.Fatalf("expected save error, got %v", err)
	}
}

func TestValuesComeBackAsJSONTypes(t *testing.T) {
	ctx := context.Background()
	m := newScriptMemory(t, newStoreHost(t), "ScriptA")

	if _, err := m.Write(ctx, "count", 3); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := m.Read(ctx, "count")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != float64(3) {
		t.Fatalf("expected float64 3, got %#v", got)
	}
	n, err := ReadAs[int](ctx, m, "count")
	if err != nil || n != 3 {
		t.Fatalf("expected typed 3, got %d (%v)", n, err)
	}
}

type roomPreset struct {
	Name   string `json:"name"`
	Volume int    `json:"volume"`
}

func (p roomPreset) Validate() error {
	if p.Name == "" {
		return errors.New("preset name is required")
	}
	return nil
}

func TestReadAs(t *testing.T) {
	ctx := context.Background()
	m := newScriptMemory(t, newStoreHost(t), "ScriptA")
	scope := m.ForScope("Presets")

	if _, err := scope.Write(ctx, "boardroom", roomPreset{Name: "Boardroom", Volume: 40}); err != nil {
		t.Fatalf("write: %v", err)
	}
	preset, err := ReadAs[roomPreset](ctx, scope, "boardroom")
	if err != nil {
		t.Fatalf("read as: %v", err)
	}
	if preset != (roomPreset{Name: "Boardroom", Volume: 40}) {
		t.Fatalf("unexpected preset %+v", preset)
	}

	if _, err := scope.Write(ctx, "blank", map[string]any{"volume": 10}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadAs[roomPreset](ctx, scope, "blank"); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ReadAs[roomPreset](ctx, scope, "absent"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	example, err := ReadGlobalAs[string](ctx, m, "ExampleKey")
	if err != nil || example != "Example Value" {
		t.Fatalf("unexpected global read %q (%v)", example, err)
	}
}

func TestOperationLogLevels(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	m := newScriptMemory(t, newStoreHost(t), "ScriptA", WithLogger(zap.New(core)))

	if _, err := m.Write(ctx, "k", "v"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.Read(ctx, "k"); err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := m.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	want := map[string]zapcore.Level{
		"memory write":  zapcore.DebugLevel,
		"memory read":   zapcore.InfoLevel,
		"memory remove": zapcore.WarnLevel,
	}
	for msg, level := range want {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Fatalf("expected one %q entry, got %d", msg, len(entries))
		}
		if entries[0].Level != level {
			t.Fatalf("expected %q at %s, got %s", msg, level, entries[0].Level)
		}
		if entries[0].ContextMap()["scope"] != "ScriptA" {
			t.Fatalf("expected scope field on %q, got %v", msg, entries[0].ContextMap())
		}
	}
}

func TestMutationsEmitActivity(t *testing.T) {
	ctx := context.Background()
	capture := &activity.CaptureHook{}
	m := newScriptMemory(t, newStoreHost(t), "ScriptA", WithActivityHooks(activity.Hooks{capture}))

	if _, err := m.Write(ctx, "k", "v"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.WriteGlobal(ctx, "g", 1); err != nil {
		t.Fatalf("write global: %v", err)
	}
	if _, err := m.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, _ = m.Read(ctx, "absent")

	verbs := capture.Verbs()
	want := []string{activity.VerbEntryWritten, activity.VerbEntryWritten, activity.VerbEntryRemoved}
	if diff := cmp.Diff(want, verbs); diff != "" {
		t.Fatalf("unexpected verbs (-want +got):\n%s", diff)
	}

	first := capture.Events[0]
	if first.Actor != "ScriptA" || first.ObjectID != "ScriptA/k" || first.Channel != activity.DefaultChannel {
		t.Fatalf("unexpected write event %+v", first)
	}
	if first.Metadata["value"] != "v" {
		t.Fatalf("expected value metadata, got %v", first.Metadata)
	}
	if capture.Events[1].ObjectID != "g" || capture.Events[1].Metadata["global"] != true {
		t.Fatalf("unexpected global write event %+v", capture.Events[1])
	}
	if capture.Events[2].Metadata["old_value"] != "v" {
		t.Fatalf("expected old value on remove, got %v", capture.Events[2].Metadata)
	}
}

func TestHookFailureDoesNotFailWrite(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	m := newScriptMemory(t, newStoreHost(t), "ScriptA", WithActivityHooks(activity.Hooks{capture}))

	if _, err := m.Write(context.Background(), "k", "v"); err != nil {
		t.Fatalf("write should not surface hook errors: %v", err)
	}
	if len(capture.Verbs()) != 1 {
		t.Fatalf("expected hook to be called once")
	}
}

func TestMutationsReturnTheirSubject(t *testing.T) {
	ctx := context.Background()
	scope := newScriptMemory(t, newStoreHost(t), "ScriptA").ForScope("Shared")

	written, err := scope.Write(ctx, "k", []any{"a", 1.0})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if diff := cmp.Diff([]any{"a", 1.0}, written); diff != "" {
		t.Fatalf("unexpected written value (-want +got):\n%s", diff)
	}
	removed, err := scope.Remove(ctx, "k")
	if err != nil || removed != "k" {
		t.Fatalf("expected removed key k, got %q (%v)", removed, err)
	}
	if got, err := scope.WriteGlobal(ctx, "g", "v"); err != nil || got != "v" {
		t.Fatalf("unexpected global write result %v (%v)", got, err)
	}
	if got, err := scope.RemoveGlobal(ctx, "g"); err != nil || got != "g" {
		t.Fatalf("unexpected global remove result %q (%v)", got, err)
	}
}

func TestReadAsWithDecodeOptions(t *testing.T) {
	ctx := context.Background()
	m := newScriptMemory(t, newStoreHost(t), "ScriptA")

	if _, err := m.Write(ctx, "preset", map[string]any{"name": "Huddle", "volume": "35", "brightness": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := ReadAs(ctx, m, "preset", DecodeStrict[roomPreset]()); err == nil {
		t.Fatalf("expected strict decode to reject unknown field")
	}

	volumeFromString := DecodePreHook[roomPreset](func(dc DecodeContext, value any) (any, error) {
		if dc.Scope != "ScriptA" || dc.Key != "preset" {
			return nil, errors.New("unexpected decode context")
		}
		payload, _ := value.(map[string]any)
		if payload["volume"] == "35" {
			payload["volume"] = 35
		}
		return payload, nil
	})
	var seen string
	recordName := DecodePostHook(func(_ DecodeContext, p *roomPreset) error {
		seen = p.Name
		return nil
	})

	preset, err := ReadAs(ctx, m, "preset", volumeFromString, recordName)
	if err != nil {
		t.Fatalf("read as: %v", err)
	}
	if preset != (roomPreset{Name: "Huddle", Volume: 35}) || seen != "Huddle" {
		t.Fatalf("unexpected preset %+v (post hook saw %q)", preset, seen)
	}

	if _, err := m.WriteGlobal(ctx, "count", 7); err != nil {
		t.Fatalf("write global: %v", err)
	}
	count, err := ReadGlobalAs(ctx, m, "count", DecodeUseNumber[any]())
	if err != nil {
		t.Fatalf("read global as: %v", err)
	}
	if n, ok := count.(json.Number); !ok || n.String() != "7" {
		t.Fatalf("expected json.Number 7, got %#v", count)
	}

	if _, err := m.WriteGlobal(ctx, "empty", nil); err != nil {
		t.Fatalf("write global: %v", err)
	}
	if _, err := ReadGlobalAs[*roomPreset](ctx, m, "empty"); err == nil {
		t.Fatalf("expected null to be rejected by default")
	}
	empty, err := ReadGlobalAs(ctx, m, "empty", DecodeAllowNull[*roomPreset]())
	if err != nil || empty != nil {
		t.Fatalf("expected nil preset, got %#v (%v)", empty, err)
	}
}

func TestWriteRejectsInvalidUTF8(t *testing.T) {
	h := newStoreHost(t)
	m := newScriptMemory(t, h, "ScriptA")

	if _, err := m.Write(context.Background(), "k", "caf\xe9"); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
	if len(h.Saves()) != 0 {
		t.Fatalf("rejected write must not save")
	}
}
