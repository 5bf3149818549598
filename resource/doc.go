// Package resource manages the lifetime of native objects.
//
// # Handles and borrows
//
// A Handle owns one opaque native pointer together with the function that
// frees it. Every native call borrows the pointer for its duration:
//
//	h, err := resource.NewHandle(ptr, freeArray)
//	if err != nil {
//	    return err // allocation failed, nothing to free
//	}
//
//	b, err := h.Acquire()
//	if err != nil {
//	    return err // handle already freed
//	}
//	defer b.Release()
//	status := capi.ArrayOpen(ctx, b.Ptr(), mode)
//
// Free may be called any number of times. The pointer is freed exactly once:
// immediately when no borrows are outstanding, otherwise when the last
// borrow is released. Acquire fails after Free.
//
// # Slot table
//
// Table is the other side of the boundary: it maps integer slots to Go
// values with a type ID per slot, which is how the engine turns opaque
// pointers back into objects.
//
//	table := resource.NewTable()
//	slot := table.Insert(typeArray, arr)
//	v, ok := table.GetTyped(slot, typeArray)
//	table.Remove(slot)
//
// Slot 0 is never issued, so it can serve as the null pointer. Observers
// registered with Subscribe see every insert and removal.
package resource
