package moneyman

import (
	"errors"
	"testing"
)

func TestMemoryStore_ApplyIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	good := Asset{ID: NewID(), Name: "US Dollar", Ticker: "USD", Kind: Currency}
	var b Batch
	b.Insert(good)
	b.Update(Asset{ID: NewID(), Name: "Ghost", Ticker: "GST"}) // unknown id

	if err := s.Apply(&b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Apply() = %v, want ErrNotFound", err)
	}
	// the failed batch left nothing behind
	if _, err := s.Asset(good.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Asset() after failed apply = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ApplyEmitsOneChangeSet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var got []ChangeSet
	cancel := s.Subscribe(func(cs ChangeSet) { got = append(got, cs) })
	defer cancel()

	a := Asset{ID: NewID(), Name: "US Dollar", Ticker: "USD", Kind: Currency}
	b := Asset{ID: NewID(), Name: "Euro", Ticker: "EUR", Kind: Currency}
	var batch Batch
	batch.Insert(a)
	batch.Insert(b)
	if err := s.Apply(&batch); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d change sets, want exactly 1 per apply", len(got))
	}
	if len(got[0].Inserted) != 2 {
		t.Errorf("change set carries %d inserts, want 2", len(got[0].Inserted))
	}

	// updates report before and after states
	a.Name = "Dollar"
	if err := s.Update(a); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if len(got) != 2 || len(got[1].Updated) != 1 {
		t.Fatalf("update change set missing: %+v", got)
	}
	upd := got[1].Updated[0]
	if upd.Before.(Asset).Name != "US Dollar" || upd.After.(Asset).Name != "Dollar" {
		t.Errorf("update = %q -> %q, want US Dollar -> Dollar", upd.Before.(Asset).Name, upd.After.(Asset).Name)
	}
}

func TestMemoryStore_SubscribeCancel(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var calls int
	cancel := s.Subscribe(func(ChangeSet) { calls++ })

	a := Asset{ID: NewID(), Name: "US Dollar", Ticker: "USD", Kind: Currency}
	if err := s.Insert(a); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	cancel()
	a.Name = "Dollar"
	if err := s.Update(a); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("observer called %d times, want 1 after cancel", calls)
	}
}

func TestMemoryStore_DisposedRejectsEverything(t *testing.T) {
	s := NewMemoryStore()
	a := Asset{ID: NewID(), Name: "US Dollar", Ticker: "USD", Kind: Currency}
	if err := s.Insert(a); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if err := s.Insert(a); !errors.Is(err, ErrStoreDisposed) {
		t.Errorf("Insert() after close = %v, want ErrStoreDisposed", err)
	}
	if _, err := s.Asset(a.ID); !errors.Is(err, ErrStoreDisposed) {
		t.Errorf("Asset() after close = %v, want ErrStoreDisposed", err)
	}
	if _, err := s.Assets(); !errors.Is(err, ErrStoreDisposed) {
		t.Errorf("Assets() after close = %v, want ErrStoreDisposed", err)
	}
	var b Batch
	b.Insert(a)
	if err := s.Apply(&b); !errors.Is(err, ErrStoreDisposed) {
		t.Errorf("Apply() after close = %v, want ErrStoreDisposed", err)
	}

	var notified bool
	cancel := s.Subscribe(func(ChangeSet) { notified = true })
	if cancel == nil {
		t.Fatal("Subscribe() after close returned a nil cancel")
	}
	cancel()
	if len(s.subs) != 0 {
		t.Errorf("Subscribe() after close registered an observer")
	}
	if notified {
		t.Errorf("observer registered after close was notified")
	}
}

func TestMemoryStore_InsertDuplicateFails(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	a := Asset{ID: NewID(), Name: "US Dollar", Ticker: "USD", Kind: Currency}
	if err := s.Insert(a); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := s.Insert(a); err == nil {
		t.Fatal("duplicate Insert() succeeded, want an error")
	}
	// InsertOrReplace does not care
	a.Name = "Dollar"
	if err := s.InsertOrReplace(a); err != nil {
		t.Fatalf("InsertOrReplace() failed: %v", err)
	}
	got, err := s.Asset(a.ID)
	if err != nil {
		t.Fatalf("Asset() failed: %v", err)
	}
	if got.Name != "Dollar" {
		t.Errorf("name = %q, want the replaced value", got.Name)
	}
}
