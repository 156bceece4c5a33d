package blob

import (
	"bytes"
	"errors"
	"testing"
)

func testFS(t *testing.T) *FS {
	t.Helper()
	f, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f
}

func TestGetMissingKey(t *testing.T) {
	f := testFS(t)
	if _, err := f.Get("vocab.db"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	f := testFS(t)
	want := []byte("image-bytes")
	if err := f.Put("vocab.db", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := f.Get("vocab.db")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get = %q, want %q", got, want)
	}
}

func TestPutOverwrites(t *testing.T) {
	f := testFS(t)
	_ = f.Put("vocab.db", []byte("old"))
	if err := f.Put("vocab.db", []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := f.Get("vocab.db")
	if string(got) != "new" {
		t.Errorf("Get = %q, want %q", got, "new")
	}
}

func TestRejectsPathKeys(t *testing.T) {
	f := testFS(t)
	for _, key := range []string{"", "../escape", "a/b"} {
		if err := f.Put(key, []byte("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
		if _, err := f.Get(key); err == nil {
			t.Errorf("Get(%q) succeeded, want error", key)
		}
	}
}

func TestMemoryFailPuts(t *testing.T) {
	m := NewMemory()
	boom := errors.New("quota exceeded")
	m.FailPuts = boom
	if err := m.Put("k", []byte("v")); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if _, err := m.Get("k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("failed put must not store a value, err = %v", err)
	}
}
