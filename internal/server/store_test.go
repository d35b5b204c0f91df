package server

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	dbpkg "github.com/metalagman/taskdeck/internal/db"
	"github.com/metalagman/taskdeck/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	conn, err := dbpkg.Open(filepath.Join(t.TempDir(), "taskdeck.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewStore(conn)
}

func TestCreateAssignsIDAndOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)

	first, err := store.Create(ctx, Record{ProjectID: "p1", Title: "first", Status: model.WireTodo})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if first.ID == "" {
		t.Fatal("id not assigned")
	}
	if first.Order != 1 {
		t.Fatalf("first order = %d, want 1", first.Order)
	}

	second, err := store.Create(ctx, Record{ProjectID: "p1", Title: "second", Status: model.WireTodo})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Order != 2 {
		t.Fatalf("second order = %d, want 2", second.Order)
	}

	// A different column starts its own sequence.
	other, err := store.Create(ctx, Record{ProjectID: "p1", Title: "review item", Status: model.WireReview})
	if err != nil {
		t.Fatalf("create review item: %v", err)
	}
	if other.Order != 1 {
		t.Fatalf("review order = %d, want 1", other.Order)
	}
}

func TestSubtasksDoNotTakeOrderSlots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)

	parent, err := store.Create(ctx, Record{ProjectID: "p1", Title: "parent", Status: model.WireTodo})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	if _, err := store.Create(ctx, Record{ProjectID: "p1", Title: "child", Status: model.WireTodo, ParentID: parent.ID}); err != nil {
		t.Fatalf("create child: %v", err)
	}

	next, err := store.Create(ctx, Record{ProjectID: "p1", Title: "sibling", Status: model.WireTodo})
	if err != nil {
		t.Fatalf("create sibling: %v", err)
	}
	if next.Order != 2 {
		t.Fatalf("sibling order = %d, want 2 (subtask must not consume a slot)", next.Order)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)

	created, err := store.Create(ctx, Record{ProjectID: "p1", Title: "task", Status: model.WireTodo})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ord := 5
	status := model.WireDoing
	updated, err := store.Update(ctx, created.ID, Patch{Order: &ord, Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Order != 5 || updated.Status != model.WireDoing {
		t.Fatalf("updated = %s/%d, want doing/5", updated.Status, updated.Order)
	}
	if updated.Title != "task" {
		t.Fatalf("title = %q, want untouched %q", updated.Title, "task")
	}

	stored, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored != updated {
		t.Fatalf("stored = %+v, want %+v", stored, updated)
	}
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	title := "x"
	_, err := store.Update(context.Background(), "ghost", Patch{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCascadesToSubtasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)

	parent, err := store.Create(ctx, Record{ProjectID: "p1", Title: "parent", Status: model.WireTodo})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := store.Create(ctx, Record{ProjectID: "p1", Title: "child", Status: model.WireTodo, ParentID: parent.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	if err := store.Delete(ctx, parent.ID); err != nil {
		t.Fatalf("delete parent: %v", err)
	}
	if _, err := store.Get(ctx, child.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("child err = %v, want ErrNotFound via cascade", err)
	}
}

func TestListScopedToProject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)

	if _, err := store.Create(ctx, Record{ProjectID: "p1", Title: "mine", Status: model.WireTodo}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, Record{ProjectID: "p2", Title: "theirs", Status: model.WireTodo}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tasks, err := store.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "mine" {
		t.Fatalf("list = %+v, want only p1's task", tasks)
	}
}
