package tasks_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"todoapp/internal/auth"
	"todoapp/internal/domain"
	"todoapp/internal/platform"
	"todoapp/internal/tasks"
	"todoapp/internal/testutil"
)

type fixture struct {
	fake     *testutil.FakePlatform
	provider *auth.Provider
	sync     *tasks.Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakePlatform()
	provider := auth.NewProvider(fake)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var tick, ids int
	s := tasks.New(fake, provider,
		tasks.WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		}),
		tasks.WithIDs(func() string {
			ids++
			return fmt.Sprintf("t%d", ids)
		}),
	)
	t.Cleanup(s.Unmount)
	return &fixture{fake: fake, provider: provider, sync: s}
}

func (f *fixture) signUp(t *testing.T) {
	t.Helper()
	if _, err := f.provider.SignUp(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
}

func TestAdd_AppearsOnlyAfterDelivery(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)

	var deliveries int
	f.sync.Subscribe(func([]domain.Task) { deliveries++ })
	before := deliveries

	if err := f.sync.Add(context.Background(), "  Buy milk  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deliveries != before+1 {
		t.Fatalf("expected one delivery after add, got %d", deliveries-before)
	}
	list := f.sync.Tasks()
	if len(list) != 1 {
		t.Fatalf("expected 1 task, got %d", len(list))
	}
	got := list[0]
	if got.Text != "Buy milk" || got.Completed || got.OwnerID != "u1" {
		t.Errorf("unexpected task %+v", got)
	}
	if f.sync.Remaining() != 1 {
		t.Errorf("expected 1 remaining, got %d", f.sync.Remaining())
	}

	fields, ok := f.fake.Document(tasks.Collection, "t1")
	if !ok {
		t.Fatal("expected document t1 to be stored")
	}
	if _, isTime := fields[tasks.FieldCreatedAt].(time.Time); !isTime {
		t.Errorf("expected createdAt to be a timestamp, got %T", fields[tasks.FieldCreatedAt])
	}
}

func TestAdd_EmptyTextFailsLocally(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)

	err := f.sync.Add(context.Background(), "   ")
	var v *domain.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if v.Message != "please enter a task" {
		t.Errorf("unexpected message %q", v.Message)
	}
	if f.fake.Writes != 0 {
		t.Errorf("expected no writes, got %d", f.fake.Writes)
	}
}

func TestAdd_RequiresUser(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()

	if err := f.sync.Add(context.Background(), "x"); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestAdd_Unmounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.sync.Add(ctx, "Buy milk"); !errors.Is(err, domain.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn while signed out, got %v", err)
	}

	f.signUp(t)
	if err := f.sync.Add(ctx, "Buy milk"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields, ok := f.fake.Document(tasks.Collection, "t1")
	if !ok {
		t.Fatal("expected stored task")
	}
	if fields[tasks.FieldOwner] != "u1" || fields[tasks.FieldText] != "Buy milk" {
		t.Errorf("unexpected fields %+v", fields)
	}
	if f.fake.ActiveQueries() != 0 || f.fake.IdentitySubscribers() != 0 {
		t.Errorf("expected nothing left subscribed, got %d queries and %d identity subscribers",
			f.fake.ActiveQueries(), f.fake.IdentitySubscribers())
	}
	if len(f.sync.Tasks()) != 0 {
		t.Error("an unmounted synchronizer keeps no list")
	}
}

func TestAdd_RemoteFailureLeavesListUnchanged(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)
	if err := f.sync.Add(context.Background(), "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.fake.SetErr = errors.New("offline")
	err := f.sync.Add(context.Background(), "second")
	var remote *domain.RemoteOperationError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteOperationError, got %v", err)
	}
	if remote.Op != "add task" {
		t.Errorf("unexpected op %q", remote.Op)
	}
	if len(f.sync.Tasks()) != 1 {
		t.Errorf("expected list unchanged, got %d tasks", len(f.sync.Tasks()))
	}
}

func TestOrdering_NewestFirst(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)

	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		if err := f.sync.Add(ctx, text); err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
	}

	list := f.sync.Tasks()
	var texts []string
	for _, task := range list {
		texts = append(texts, task.Text)
	}
	want := []string{"three", "two", "one"}
	if fmt.Sprint(texts) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, texts)
	}
}

func TestToggle(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)
	ctx := context.Background()
	if err := f.sync.Add(ctx, "Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}

	task := f.sync.Tasks()[0]
	if err := f.sync.Toggle(ctx, task); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !f.sync.Tasks()[0].Completed {
		t.Error("expected task completed after delivery")
	}
	if f.sync.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", f.sync.Remaining())
	}

	if err := f.sync.Toggle(ctx, f.sync.Tasks()[0]); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if f.sync.Tasks()[0].Completed {
		t.Error("expected task open after second toggle")
	}
}

func TestToggle_RemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)
	ctx := context.Background()
	if err := f.sync.Add(ctx, "Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}

	f.fake.UpdateErr = errors.New("offline")
	if err := f.sync.Toggle(ctx, f.sync.Tasks()[0]); !domain.IsRemote(err) {
		t.Fatalf("expected RemoteOperationError, got %v", err)
	}
	if f.sync.Tasks()[0].Completed {
		t.Error("expected task unchanged after failed toggle")
	}
}

func TestRemove_Confirmation(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)
	ctx := context.Background()
	if err := f.sync.Add(ctx, "Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}
	writes := f.fake.Writes

	var asked domain.Task
	decline := func(task domain.Task) bool {
		asked = task
		return false
	}
	if err := f.sync.Remove(ctx, "t1", decline); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asked.Text != "Buy milk" {
		t.Errorf("expected confirm to receive the task, got %+v", asked)
	}
	if err := f.sync.Remove(ctx, "t1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.fake.Writes != writes {
		t.Fatalf("expected no delete without confirmation")
	}

	accept := func(domain.Task) bool { return true }
	if err := f.sync.Remove(ctx, "t1", accept); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.sync.Tasks()) != 0 {
		t.Errorf("expected empty list, got %d", len(f.sync.Tasks()))
	}
	if f.fake.Count(tasks.Collection) != 0 {
		t.Error("expected document deleted")
	}
}

func TestRemove_UnknownTask(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)

	asked := false
	err := f.sync.Remove(context.Background(), "missing", func(domain.Task) bool {
		asked = true
		return true
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if asked {
		t.Error("confirm must not be asked for an unknown task")
	}
	if f.fake.Writes != 0 {
		t.Errorf("expected no writes, got %d", f.fake.Writes)
	}
}

func TestRemove_RemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)
	ctx := context.Background()
	if err := f.sync.Add(ctx, "Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}

	f.fake.DeleteErr = errors.New("offline")
	err := f.sync.Remove(ctx, "t1", func(domain.Task) bool { return true })
	var remote *domain.RemoteOperationError
	if !errors.As(err, &remote) || remote.Op != "delete task" {
		t.Fatalf("expected delete task error, got %v", err)
	}
	if len(f.sync.Tasks()) != 1 {
		t.Error("expected task to remain listed")
	}
}

func TestOnlyOwnTasks(t *testing.T) {
	f := newFixture(t)
	f.fake.PutDocument(tasks.Collection, "other", platform.Fields{
		tasks.FieldText:      "not mine",
		tasks.FieldCompleted: false,
		tasks.FieldOwner:     "someone-else",
	})
	f.sync.Mount()
	f.signUp(t)

	if len(f.sync.Tasks()) != 0 {
		t.Errorf("expected only own tasks, got %+v", f.sync.Tasks())
	}
}

func TestSignOutClosesQueryAndClearsList(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)
	ctx := context.Background()
	if err := f.sync.Add(ctx, "Buy milk"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if f.fake.ActiveQueries() != 1 {
		t.Fatalf("expected one live query, got %d", f.fake.ActiveQueries())
	}

	var last []domain.Task
	f.sync.Subscribe(func(list []domain.Task) { last = list })

	if err := f.provider.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if f.fake.ActiveQueries() != 0 {
		t.Errorf("expected live query closed, got %d", f.fake.ActiveQueries())
	}
	if last != nil || len(f.sync.Tasks()) != 0 {
		t.Errorf("expected cleared list, got %+v", f.sync.Tasks())
	}

	// Writes after sign-out never reach the old subscriber.
	f.fake.PutDocument(tasks.Collection, "late", platform.Fields{tasks.FieldOwner: "u1"})
	if len(f.sync.Tasks()) != 0 {
		t.Error("expected stale delivery to be ignored")
	}
}

func TestUnmountReleasesEverything(t *testing.T) {
	f := newFixture(t)
	f.sync.Mount()
	f.signUp(t)

	f.sync.Unmount()
	if f.fake.ActiveQueries() != 0 {
		t.Errorf("expected no live queries, got %d", f.fake.ActiveQueries())
	}
	if f.fake.IdentitySubscribers() != 0 {
		t.Errorf("expected auth subscription released, got %d", f.fake.IdentitySubscribers())
	}
}

func TestWait(t *testing.T) {
	f := newFixture(t)
	f.fake.SignInAs(domain.Identity{ID: "u7", Email: "x@y.com"})
	f.fake.PutDocument(tasks.Collection, "a", platform.Fields{
		tasks.FieldText:  "mine",
		tasks.FieldOwner: "u7",
	})
	f.sync.Mount()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	list, err := f.sync.Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Text != "mine" {
		t.Errorf("unexpected list %+v", list)
	}
}
