package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/badgemaker/badgemaker/internal/document"
)

func rect(id int64, x float64) document.Shape {
	return document.Shape{ID: id, Type: document.TypeRectangle, Props: document.Properties{"x": x}}
}

func ids(shapes []document.Shape) []int64 {
	out := make([]int64, len(shapes))
	for i, s := range shapes {
		out[i] = s.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMemoryUpsertKeepsOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(rect(1, 0), rect(2, 0))

	if err := m.Save(ctx, rect(1, 50)); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveMany(ctx, []document.Shape{rect(3, 0), rect(2, 9)}); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Load(ctx)
	if want := []int64{1, 2, 3}; !equalIDs(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
	if x := got[0].Props.Float("x"); x != 50 {
		t.Errorf("shape 1 x = %v, want 50", x)
	}

	// Load returns copies.
	got[0].Props["x"] = 1000.0
	again, _ := m.Load(ctx)
	if x := again[0].Props.Float("x"); x != 50 {
		t.Errorf("stored shape mutated through Load result: x = %v", x)
	}

	if err := m.Delete(ctx, 2); err != nil {
		t.Fatal(err)
	}
	got, _ = m.Load(ctx)
	if want := []int64{1, 3}; !equalIDs(ids(got), want) {
		t.Errorf("after delete = %v, want %v", ids(got), want)
	}
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "doc.json")
	f := NewFile(path)
	if err := f.Init(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := f.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("Load on missing file = %v, %v", got, err)
	}

	if err := f.SaveMany(ctx, []document.Shape{rect(1, 10), rect(2, 20)}); err != nil {
		t.Fatal(err)
	}
	if err := f.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}

	reopened := NewFile(path)
	got, err = reopened.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{2}; !equalIDs(ids(got), want) {
		t.Fatalf("reloaded = %v, want %v", ids(got), want)
	}
	if x := got[0].Props.Float("x"); x != 20 {
		t.Errorf("x = %v, want 20", x)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("data dir has %d entries, temp files left behind", len(entries))
	}
}

func TestFileLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFile(path).Load(context.Background())
	if !errors.Is(err, document.ErrInvalidFile) {
		t.Errorf("err = %v, want ErrInvalidFile", err)
	}
}

// recording wraps Memory and logs the order of operations.
type recording struct {
	*Memory
	mu   sync.Mutex
	ops  []string
	fail bool
}

func (r *recording) log(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	if r.fail {
		return errors.New("disk full")
	}
	return nil
}

func (r *recording) Save(ctx context.Context, s document.Shape) error {
	if err := r.log("save"); err != nil {
		return err
	}
	return r.Memory.Save(ctx, s)
}

func (r *recording) DeleteAll(ctx context.Context) error {
	if err := r.log("delete all"); err != nil {
		return err
	}
	return r.Memory.DeleteAll(ctx)
}

func (r *recording) SaveMany(ctx context.Context, shapes []document.Shape) error {
	if err := r.log("save many"); err != nil {
		return err
	}
	return r.Memory.SaveMany(ctx, shapes)
}

func startQueue(t *testing.T, a Adapter) *Queue {
	t.Helper()
	q := NewQueue(a, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Run(ctx)
	return q
}

func TestQueueOrder(t *testing.T) {
	ctx := context.Background()
	r := &recording{Memory: NewMemory()}
	q := startQueue(t, r)

	q.Save(rect(1, 0))
	q.Save(rect(2, 0))
	q.Replace([]document.Shape{rect(2, 0), rect(1, 0)})
	q.Delete(2)
	if err := q.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	want := []string{"save", "save", "delete all", "save many"}
	r.mu.Lock()
	got := append([]string(nil), r.ops...)
	r.mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}

	shapes, _ := r.Load(ctx)
	if want := []int64{1}; !equalIDs(ids(shapes), want) {
		t.Errorf("stored = %v, want %v", ids(shapes), want)
	}
}

func TestQueueSnapshotsShapes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	q := startQueue(t, m)

	s := rect(1, 5)
	q.Save(s)
	s.Props["x"] = 99.0
	if err := q.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Load(ctx)
	if x := got[0].Props.Float("x"); x != 5 {
		t.Errorf("x = %v, want 5 (enqueued value)", x)
	}
}

func TestQueueFailureDoesNotStop(t *testing.T) {
	ctx := context.Background()
	r := &recording{Memory: NewMemory(), fail: true}
	q := startQueue(t, r)

	q.Save(rect(1, 0))
	if err := q.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	r.mu.Lock()
	r.fail = false
	r.mu.Unlock()

	q.Save(rect(2, 0))
	if err := q.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	shapes, _ := r.Load(ctx)
	if want := []int64{2}; !equalIDs(ids(shapes), want) {
		t.Errorf("stored = %v, want %v", ids(shapes), want)
	}
}

func TestQueueClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := NewMemory()
	q := startQueue(t, m)
	for i := int64(1); i <= 20; i++ {
		q.Save(rect(i, 0))
	}
	if err := q.Close(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Load(ctx)
	if len(got) != 20 {
		t.Errorf("stored %d shapes after Close, want 20", len(got))
	}

	q.Save(rect(99, 0))
	if err := q.Sync(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Sync after Close = %v, want ErrClosed", err)
	}
	if err := q.Close(ctx); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
