package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"quartermaster/pkg/types"
)

func testItem() types.Item {
	return types.Item{ID: "SP-100", Component: "solar_panel", Vendor: "Helios Dynamics", Price: 4800}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	created, err := store.Create(KindNegotiation, testItem(), types.Request{Component: "solar_panel"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Kind != KindNegotiation {
		t.Fatalf("created = %+v", created)
	}
	if len(created.Messages) != 0 {
		t.Errorf("new session has messages: %+v", created.Messages)
	}

	loaded, err := store.Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Item.ID != "SP-100" || loaded.Request.Component != "solar_panel" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestStoreRejectsUnknownKind(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	if _, err := store.Create("interrogation", testItem(), types.Request{}); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestStoreSaveRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	session, err := store.Create(KindCost, testItem(), types.Request{})
	if err != nil {
		t.Fatal(err)
	}

	session.Append(types.ChatMessage{Role: "user", Message: "Any volume discount?", Timestamp: time.Now()})
	if err := store.Save(session); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Get(session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Message != "Any volume discount?" {
		t.Errorf("messages = %+v", loaded.Messages)
	}
	if loaded.UpdatedAt.Before(loaded.CreatedAt) {
		t.Error("UpdatedAt not bumped")
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	if _, err := store.Get("session-nope"); err == nil {
		t.Error("missing session should error")
	}
}

func TestStoreListSkipsCorrupted(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)

	good, err := store.Create(KindCost, testItem(), types.Request{})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session-bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != good.ID {
		t.Errorf("ids = %v, want [%s]", ids, good.ID)
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	session, err := store.Create(KindNegotiation, testItem(), types.Request{})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(session.ID); err == nil {
		t.Error("deleted session still readable")
	}
	if err := store.Delete(session.ID); err != nil {
		t.Errorf("double delete should be a no-op: %v", err)
	}
}

func TestManagerFlow(t *testing.T) {
	manager := NewManager(NewStore(t.TempDir(), nil))

	session, err := manager.Start(KindNegotiation, testItem(), types.Request{})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := manager.Append(session.ID,
		types.ChatMessage{Role: "buyer", Message: "Can you do $4500?", Timestamp: time.Now()},
		types.ChatMessage{Role: "vendor", Message: "At 50 units, yes.", Timestamp: time.Now()},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Messages) != 2 {
		t.Errorf("messages = %+v", updated.Messages)
	}

	got, err := manager.Get(session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != updated {
		t.Error("manager should hand back the cached session")
	}

	ids, err := manager.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("ids = %v", ids)
	}

	if err := manager.Delete(session.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.Get(session.ID); err == nil {
		t.Error("deleted session still resolvable")
	}
}

func TestManagerAppendUncached(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	session, err := store.Create(KindCost, testItem(), types.Request{})
	if err != nil {
		t.Fatal(err)
	}

	// Fresh manager with a cold cache must fall back to disk.
	manager := NewManager(NewStore(dir, nil))
	updated, err := manager.Append(session.ID, types.ChatMessage{Role: "user", Message: "hi", Timestamp: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.Messages) != 1 {
		t.Errorf("messages = %+v", updated.Messages)
	}
}
