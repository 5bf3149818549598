package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	s := table.Insert(1, "test")
	if s == 0 {
		t.Fatal("Expected non-zero slot")
	}

	val, ok := table.Get(s)
	if !ok || val != "test" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	if _, ok = table.GetTyped(s, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok = table.GetTyped(s, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}
	if _, ok = table.RemoveTyped(s, 2); ok {
		t.Fatal("RemoveTyped with wrong type should fail")
	}

	val, ok = table.Remove(s)
	if !ok || val != "test" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	s := table.Insert(1, "test")
	if len(obs.events) != 1 || obs.events[0].Type != EventCreated || obs.events[0].Slot != s {
		t.Fatalf("unexpected events after Insert: %+v", obs.events)
	}

	table.Remove(s)
	if len(obs.events) != 2 || obs.events[1].Type != EventDropped || obs.events[1].TypeID != 1 {
		t.Fatalf("unexpected events after Remove: %+v", obs.events)
	}

	table.Unsubscribe(obs)
	table.Insert(1, "other")
	if len(obs.events) != 2 {
		t.Fatal("Unsubscribed observer received an event")
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	created := 0
	table.Subscribe(ObserverFunc(func(e Event) {
		if e.Type == EventCreated {
			created++
		}
	}))
	table.Insert(1, "a")
	table.Insert(1, "b")
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}
}

func TestTable_RemoveRunsDropper(t *testing.T) {
	table := NewTable()
	drops := 0
	s := table.Insert(1, dropCounter{&drops})
	table.Remove(s)
	table.Remove(s)
	if drops != 1 {
		t.Fatalf("drops = %d, want 1", drops)
	}
}

func TestTable_CountByType(t *testing.T) {
	table := NewTable()
	a := table.Insert(1, "a")
	table.Insert(1, "b")
	table.Insert(3, "c")

	counts := table.CountByType()
	if counts[1] != 2 || counts[3] != 1 {
		t.Fatalf("CountByType = %v", counts)
	}

	table.Remove(a)
	if counts := table.CountByType(); counts[1] != 1 || table.Len() != 2 {
		t.Fatalf("after Remove: counts=%v len=%d", counts, table.Len())
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	table.Insert(1, "a")
	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s := table.Insert(1, "b"); s != 0 {
		t.Fatal("Insert after Close should return 0")
	}
}

func TestTypedTable(t *testing.T) {
	table := NewTable()
	ints := Typed[int](table, 1)
	strs := Typed[string](table, 2)

	s := ints.Insert(42)
	if v, ok := ints.Get(s); !ok || v != 42 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	if _, ok := strs.Get(s); ok {
		t.Fatal("typed view must not see other types")
	}
	if _, ok := strs.Remove(s); ok {
		t.Fatal("typed view must not remove other types")
	}
	if v, ok := ints.Remove(s); !ok || v != 42 {
		t.Fatalf("Remove = %v, %v", v, ok)
	}
}
