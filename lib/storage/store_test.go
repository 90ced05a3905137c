// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/sqlitepool"
	"github.com/weft-foundation/weft/lib/storage"
	"github.com/weft-foundation/weft/lib/testutil"
)

var (
	alice = ref.MustParseIdentity("co_zAlice")
	bob   = ref.MustParseIdentity("co_zBob")
)

func openTestStore(t *testing.T) (*storage.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weft.db")
	store, err := storage.Open(storage.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store, path
}

func newTestGroup(t *testing.T) *covalue.CoValue {
	t.Helper()
	ruleset, err := covalue.NewGroupRuleset(alice)
	if err != nil {
		t.Fatalf("NewGroupRuleset: %v", err)
	}
	value, err := covalue.New(covalue.Header{
		Type:       "comap",
		Ruleset:    ruleset,
		CreatedAt:  1,
		Uniqueness: testutil.UniqueID("group"),
	})
	if err != nil {
		t.Fatalf("covalue.New: %v", err)
	}
	return value
}

func session(t *testing.T, author ref.Identity) ref.SessionID {
	t.Helper()
	id, err := ref.NewSessionID(author, "s1")
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	return id
}

func appendSet(t *testing.T, value *covalue.CoValue, author ref.Identity, madeAt int64, key, rawValue string) {
	t.Helper()
	changes := `[{"op":"set","key":"` + key + `","value":` + rawValue + `}]`
	_, err := value.Append(session(t, author), covalue.Transaction{
		Privacy: covalue.Trusting,
		MadeAt:  madeAt,
		Changes: json.RawMessage(changes),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	group := newTestGroup(t)
	appendSet(t, group, alice, 10, alice.String(), `"admin"`)
	appendSet(t, group, alice, 20, bob.String(), `"writer"`)

	// A private transaction and a large compressible one exercise
	// both payload paths.
	if _, err := group.Append(session(t, alice), covalue.Transaction{
		Privacy:          covalue.Private,
		MadeAt:           30,
		EncryptedChanges: []byte{0x01, 0x02, 0x03},
		KeyUsed:          ref.MustParseKeyID("key_zR1"),
	}); err != nil {
		t.Fatalf("Append private: %v", err)
	}
	large := strings.Repeat("collaborative ", 96)
	appendSet(t, group, bob, 40, "notes", `"`+large+`"`)

	if err := store.Put(ctx, group); err != nil {
		t.Fatalf("Put: %v", err)
	}

	loaded, err := store.Get(ctx, group.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if loaded.ID() != group.ID() {
		t.Fatalf("loaded ID = %s, want %s", loaded.ID(), group.ID())
	}
	if loaded.Header().Type != "comap" {
		t.Errorf("loaded header type = %q, want comap", loaded.Header().Type)
	}
	if loaded.Ruleset().InitialAdmin() != alice {
		t.Errorf("loaded initial admin = %s, want %s", loaded.Ruleset().InitialAdmin(), alice)
	}

	want := group.Entries()
	got := loaded.Entries()
	if len(got) != len(want) {
		t.Fatalf("loaded %d transactions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("entry %d ID = %s, want %s", i, got[i].ID, want[i].ID)
		}
		if got[i].Tx.MadeAt != want[i].Tx.MadeAt {
			t.Errorf("entry %d madeAt = %d, want %d", i, got[i].Tx.MadeAt, want[i].Tx.MadeAt)
		}
		if got[i].Tx.Privacy != want[i].Tx.Privacy {
			t.Errorf("entry %d privacy = %q, want %q", i, got[i].Tx.Privacy, want[i].Tx.Privacy)
		}
		if !bytes.Equal(got[i].Tx.Changes, want[i].Tx.Changes) {
			t.Errorf("entry %d changes differ", i)
		}
		if !bytes.Equal(got[i].Tx.EncryptedChanges, want[i].Tx.EncryptedChanges) {
			t.Errorf("entry %d encrypted changes differ", i)
		}
		if got[i].Tx.KeyUsed != want[i].Tx.KeyUsed {
			t.Errorf("entry %d keyUsed = %s, want %s", i, got[i].Tx.KeyUsed, want[i].Tx.KeyUsed)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.Get(context.Background(), ref.MustParseCoID("co_zMissing"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutIsIncremental(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	group := newTestGroup(t)
	appendSet(t, group, alice, 10, alice.String(), `"admin"`)
	if err := store.Put(ctx, group); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Appending and re-storing adds only the new suffix; the double
	// Put must not duplicate anything.
	appendSet(t, group, alice, 20, bob.String(), `"writer"`)
	if err := store.Put(ctx, group); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if err := store.Put(ctx, group); err != nil {
		t.Fatalf("third Put: %v", err)
	}

	loaded, err := store.Get(ctx, group.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.TransactionCount() != 2 {
		t.Errorf("transaction count = %d, want 2", loaded.TransactionCount())
	}
}

func TestListAndLoadAll(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	first := newTestGroup(t)
	appendSet(t, first, alice, 10, alice.String(), `"admin"`)
	second := newTestGroup(t)
	appendSet(t, second, alice, 10, alice.String(), `"admin"`)

	for _, value := range []*covalue.CoValue{first, second} {
		if err := store.Put(ctx, value); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	ids, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("List returned %d IDs, want 2", len(ids))
	}

	registry := covalue.NewRegistry(alice)
	if err := store.LoadAll(ctx, registry); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for _, value := range []*covalue.CoValue{first, second} {
		if _, err := registry.ExpectCoValueLoaded(value.ID()); err != nil {
			t.Errorf("ExpectCoValueLoaded(%s): %v", value.ID(), err)
		}
	}
}

func TestCorruptHeaderDetected(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	group := newTestGroup(t)
	appendSet(t, group, alice, 10, alice.String(), `"admin"`)
	if err := store.Put(ctx, group); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Flip bytes in the stored header behind the store's back.
	pool, err := sqlitepool.Open(sqlitepool.Config{Path: path, PoolSize: 1})
	if err != nil {
		t.Fatalf("opening raw pool: %v", err)
	}
	conn, err := pool.Take(ctx)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	err = sqlitex.Execute(conn,
		"UPDATE covalues SET header = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{[]byte("garbage"), group.ID().String()}})
	pool.Put(conn)
	if closeErr := pool.Close(); closeErr != nil {
		t.Fatalf("closing raw pool: %v", closeErr)
	}
	if err != nil {
		t.Fatalf("UPDATE: %v", err)
	}

	if _, err := store.Get(ctx, group.ID()); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}
