package resource

import (
	"errors"
	"sync"
	"testing"
)

type dropCounter struct {
	drops *int
}

func (d dropCounter) Drop() { *d.drops++ }

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	slot, err := b.Create(1, "test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if slot == 0 {
		t.Fatal("Expected non-zero slot")
	}

	val, ok := b.Get(slot)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	typeID, ok := b.TypeID(slot)
	if !ok || typeID != 1 {
		t.Fatalf("TypeID = %d, %v", typeID, ok)
	}

	val, ok = b.Drop(slot)
	if !ok {
		t.Fatal("Drop failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	if _, ok = b.Get(slot); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
	if _, ok = b.Drop(slot); ok {
		t.Fatal("Second Drop should report false")
	}
}

func TestLocalBackend_SlotReuse(t *testing.T) {
	b := NewLocalBackend()

	s1, _ := b.Create(1, 1)
	s2, _ := b.Create(1, 2)
	s3, _ := b.Create(1, 3)

	b.Drop(s2)
	s4, _ := b.Create(2, 4)
	if s4 != s2 {
		t.Fatalf("expected freed slot %d to be reused, got %d", s2, s4)
	}

	for _, s := range []Slot{s1, s3, s4} {
		if _, ok := b.Get(s); !ok {
			t.Fatalf("slot %d should be valid", s)
		}
	}
	if typeID, _ := b.TypeID(s4); typeID != 2 {
		t.Fatalf("reused slot has type %d, want 2", typeID)
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()
	drops := 0

	b.Create(1, dropCounter{&drops})
	b.Create(1, dropCounter{&drops})

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if drops != 2 {
		t.Fatalf("Close dropped %d values, want 2", drops)
	}

	_, err := b.Create(1, "test")
	if !errors.Is(err, ErrClosed) {
		t.Fatal("Expected ErrClosed after Close")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s, _ := b.Create(1, id)
			b.Get(s)
			b.Drop(s)
		}(i)
	}

	wg.Wait()
	if b.Len() != 0 {
		t.Fatalf("Len = %d, want 0", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()

	b.Create(1, "a")
	b.Create(2, "b")
	b.Create(1, "c")

	count := 0
	b.Each(func(Slot, uint32, any) bool {
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Expected to iterate over 3 items, got %d", count)
	}

	count = 0
	b.Each(func(Slot, uint32, any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

func TestLocalBackend_InvalidSlot(t *testing.T) {
	b := NewLocalBackend()

	if _, ok := b.Get(0); ok {
		t.Fatal("Slot 0 should be invalid")
	}
	if _, ok := b.Drop(0); ok {
		t.Fatal("Slot 0 should fail Drop")
	}
	if _, ok := b.Get(999); ok {
		t.Fatal("Non-existent slot should be invalid")
	}
}
