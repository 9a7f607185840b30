package adapt

import (
	"cmp"
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/signadot/observe/persist"
	"github.com/signadot/observe/vector"
)

// idle is an upstream that never produces a batch.
type idle[T any] struct{}

func (idle[T]) NextBatch(ctx context.Context) ([]vector.Diff[T], error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// randomDiff returns a diff that applies to values.
func randomDiff(r *rand.Rand, values persist.Vector[int]) vector.Diff[int] {
	n := values.Len()
	v := r.IntN(20)
	for {
		switch r.IntN(13) {
		case 0:
			vs := make([]int, r.IntN(4))
			for i := range vs {
				vs[i] = r.IntN(20)
			}
			return vector.Append(persist.FromSlice(vs))
		case 1:
			if r.IntN(4) == 0 {
				return vector.Clear[int]()
			}
		case 2:
			return vector.PushFront(v)
		case 3, 4:
			return vector.PushBack(v)
		case 5:
			if n > 0 {
				return vector.PopFront[int]()
			}
		case 6:
			if n > 0 {
				return vector.PopBack[int]()
			}
		case 7, 8:
			return vector.Insert(r.IntN(n+1), v)
		case 9, 10:
			if n > 0 {
				return vector.Set(r.IntN(n), v)
			}
		case 11:
			if n > 0 {
				return vector.Remove[int](r.IntN(n))
			}
		case 12:
			if r.IntN(3) == 0 {
				return vector.Truncate[int](r.IntN(n + 1))
			}
			if r.IntN(6) == 0 {
				vs := make([]int, r.IntN(6))
				for i := range vs {
					vs[i] = r.IntN(20)
				}
				return vector.Reset(persist.FromSlice(vs))
			}
		}
	}
}

func isEven(v int) bool { return v%2 == 0 }

func halfOfEven(v int) (int, bool) {
	if v%2 != 0 {
		return 0, false
	}
	return v / 2, true
}

func stableSorted(vs []int, key func(int) int) []int {
	res := slices.Clone(vs)
	slices.SortStableFunc(res, func(a, b int) int { return cmp.Compare(key(a), key(b)) })
	return res
}

type equivCase struct {
	name string
	// n is the initial window size, used by kinds that resize.
	n    int
	make func(persist.Vector[int]) (persist.Vector[int], transformer[int, int])
	pure func(vs []int, n int) []int
}

func equivCases() []equivCase {
	mk := func(f func(persist.Vector[int], vector.Stream[int]) (persist.Vector[int], *Adapter[int, int])) func(persist.Vector[int]) (persist.Vector[int], transformer[int, int]) {
		return func(vs persist.Vector[int]) (persist.Vector[int], transformer[int, int]) {
			init, a := f(vs, idle[int]{})
			return init, a.t
		}
	}
	return []equivCase{
		{
			name: "filter",
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return Filter(vs, up, isEven)
			}),
			pure: func(vs []int, _ int) []int {
				return slices.DeleteFunc(slices.Clone(vs), func(v int) bool { return !isEven(v) })
			},
		},
		{
			name: "filter_map",
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return FilterMap(vs, up, halfOfEven)
			}),
			pure: func(vs []int, _ int) []int {
				var res []int
				for _, v := range vs {
					if u, ok := halfOfEven(v); ok {
						res = append(res, u)
					}
				}
				return res
			},
		},
		{
			name: "head",
			n:    3,
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return Head(vs, up, 3)
			}),
			pure: func(vs []int, n int) []int { return vs[:min(n, len(vs))] },
		},
		{
			name: "tail",
			n:    3,
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return Tail(vs, up, 3)
			}),
			pure: func(vs []int, n int) []int { return vs[max(0, len(vs)-n):] },
		},
		{
			name: "skip",
			n:    2,
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return Skip(vs, up, 2)
			}),
			pure: func(vs []int, n int) []int { return vs[min(n, len(vs)):] },
		},
		{
			name: "sort",
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return Sort(vs, up)
			}),
			pure: func(vs []int, _ int) []int { return stableSorted(vs, func(v int) int { return v }) },
		},
		{
			name: "sort_by",
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return SortBy(vs, up, func(a, b int) int { return cmp.Compare(b, a) })
			}),
			pure: func(vs []int, _ int) []int { return stableSorted(vs, func(v int) int { return -v }) },
		},
		{
			// ties are frequent, so this checks upstream order is kept
			name: "sort_by_key",
			make: mk(func(vs persist.Vector[int], up vector.Stream[int]) (persist.Vector[int], *Adapter[int, int]) {
				return SortByKey(vs, up, func(v int) int { return v / 5 })
			}),
			pure: func(vs []int, _ int) []int { return stableSorted(vs, func(v int) int { return v / 5 }) },
		},
	}
}

func TestAdapterEquivalence(t *testing.T) {
	for _, tc := range equivCases() {
		t.Run(tc.name, func(t *testing.T) {
			for seed := range uint64(20) {
				r := rand.New(rand.NewPCG(seed, 7))
				upstream := persist.New(r.IntN(20), r.IntN(20), r.IntN(20))
				derived, tr := tc.make(upstream)
				n := tc.n
				check := func(step int, last any) {
					t.Helper()
					want := tc.pure(upstream.Values(), n)
					if got := derived.Values(); !slices.Equal(got, want) {
						t.Fatalf("seed %d step %d after %v: got %v want %v (upstream %v)",
							seed, step, last, got, want, upstream.Values())
					}
				}
				check(-1, "init")
				for step := range 200 {
					if rs, ok := tr.(resizer[int]); ok && r.IntN(10) == 0 {
						n = r.IntN(6)
						derived = vector.ApplyAll(rs.resize(n, nil), derived)
						check(step, "resize")
						continue
					}
					d := randomDiff(r, upstream)
					upstream = vector.Apply(d, upstream)
					derived = vector.ApplyAll(tr.apply(d, nil), derived)
					check(step, d)
				}
			}
		})
	}
}

func TestWindowDiffs(t *testing.T) {
	tests := []struct {
		name string
		kind windowKind
		n    int
		init []int
		diff vector.Diff[int]
		want []vector.Diff[int]
	}{
		{"head push front", head, 2, []int{1, 2, 3}, vector.PushFront(0),
			[]vector.Diff[int]{vector.PopBack[int](), vector.PushFront(0)}},
		{"head remove backfills", head, 2, []int{1, 2, 3}, vector.Remove[int](0),
			[]vector.Diff[int]{vector.PopFront[int](), vector.PushBack(3)}},
		{"head remove shrinks", head, 2, []int{1, 2}, vector.Remove[int](0),
			[]vector.Diff[int]{vector.PopFront[int]()}},
		{"head push back outside", head, 2, []int{1, 2}, vector.PushBack(3), nil},
		{"head set outside", head, 2, []int{1, 2, 3}, vector.Set(2, 9), nil},
		{"head set inside", head, 2, []int{1, 2, 3}, vector.Set(1, 9),
			[]vector.Diff[int]{vector.Set(1, 9)}},
		{"head append fills", head, 3, []int{1}, vector.Append(persist.New(2, 3, 4)),
			[]vector.Diff[int]{vector.Append(persist.New(2, 3))}},
		{"tail push back", tail, 2, []int{1, 2, 3}, vector.PushBack(4),
			[]vector.Diff[int]{vector.PopFront[int](), vector.PushBack(4)}},
		{"tail pop back backfills", tail, 2, []int{1, 2, 3}, vector.PopBack[int](),
			[]vector.Diff[int]{vector.PopBack[int](), vector.PushFront(1)}},
		{"skip remove", skip, 1, []int{1, 2, 3}, vector.Remove[int](0),
			[]vector.Diff[int]{vector.PopFront[int]()}},
		{"skip insert front", skip, 1, []int{1, 2, 3}, vector.Insert(0, 0),
			[]vector.Diff[int]{vector.PushFront(1)}},
		{"clear", head, 2, []int{1, 2, 3}, vector.Clear[int](),
			[]vector.Diff[int]{vector.Clear[int]()}},
		{"reset", tail, 1, []int{1, 2, 3}, vector.Reset(persist.New(4, 5)),
			[]vector.Diff[int]{vector.Reset(persist.New(5))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := &window[int]{kind: tc.kind, n: tc.n, buf: persist.FromSlice(tc.init)}
			got := w.apply(tc.diff, nil)
			if !diffsEqual(got, tc.want) {
				t.Errorf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestSortSetMovesOrSets(t *testing.T) {
	init, a := Sort(persist.New(3, 1, 2), idle[int]{})
	if got := init.Values(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("init %v", got)
	}
	// 1 -> 0 keeps its rank
	got := a.t.apply(vector.Set(1, 0), nil)
	if want := []vector.Diff[int]{vector.Set(0, 0)}; !diffsEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
	// 3 -> -1 moves from last to first
	got = a.t.apply(vector.Set(0, -1), nil)
	want := []vector.Diff[int]{vector.PopBack[int](), vector.PushFront(-1)}
	if !diffsEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestSortTruncateSuffix(t *testing.T) {
	_, a := Sort(persist.New(1, 2, 3, 4), idle[int]{})
	got := a.t.apply(vector.Truncate[int](2), nil)
	if want := []vector.Diff[int]{vector.Truncate[int](2)}; !diffsEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func diffsEqual(a, b []vector.Diff[int]) bool {
	return slices.EqualFunc(a, b, func(x, y vector.Diff[int]) bool {
		return x.Op == y.Op && x.Index == y.Index && x.Length == y.Length &&
			x.Value == y.Value && persist.Equal(x.Values, y.Values)
	})
}

func nextBatch[T any](t *testing.T, s vector.Stream[T]) []vector.Diff[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := s.NextBatch(ctx)
	if err != nil {
		t.Fatalf("NextBatch: %v", err)
	}
	return b
}

func TestPipeline(t *testing.T) {
	o := vector.New[int](vector.Capacity(64))
	defer o.Close()
	o.Append(7, 4, 9, 2)
	values, sub := o.Subscribe()
	defer sub.Close()

	fv, fa := Filter(values, sub, func(v int) bool { return v > 3 })
	sv, sa := Sort(fv, fa)
	view, ha := Head(sv, sa, 2)
	if got := view.Values(); !slices.Equal(got, []int{4, 7}) {
		t.Fatalf("initial view %v", got)
	}

	steps := []struct {
		do   func()
		want []int
	}{
		{func() { o.PushBack(5) }, []int{4, 5}},
		{func() { o.Set(1, 1) }, []int{5, 7}},
		{func() { o.Insert(0, 6) }, []int{5, 6}},
		{func() { o.Truncate(2) }, []int{6, 7}},
	}
	for i, st := range steps {
		st.do()
		view = vector.ApplyAll(nextBatch(t, ha), view)
		if got := view.Values(); !slices.Equal(got, st.want) {
			t.Errorf("step %d: got %v want %v", i, got, st.want)
		}
	}
}

func TestAdapterSkipsEmptyBatches(t *testing.T) {
	o := vector.New[int]()
	defer o.Close()
	values, sub := o.Subscribe()
	_, fa := Filter(values, sub, isEven)
	o.PushBack(1)
	o.PushBack(3)
	o.PushBack(4)
	got := nextBatch(t, fa)
	if want := []vector.Diff[int]{vector.PushBack(4)}; !diffsEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestAdapterClosed(t *testing.T) {
	o := vector.New[int]()
	values, sub := o.Subscribe()
	_, fa := Filter(values, sub, isEven)
	o.PushBack(2)
	o.Close()
	nextBatch(t, fa)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := fa.NextBatch(ctx); !errors.Is(err, vector.ErrClosed) {
		t.Errorf("got %v want ErrClosed", err)
	}
}

func TestAdapterNext(t *testing.T) {
	o := vector.New[int]()
	defer o.Close()
	values, sub := o.Subscribe()
	_, a := Tail(values, sub, 5)
	o.Append(1, 2)
	tx := o.Transaction()
	tx.PushBack(3)
	tx.PushFront(0)
	tx.Commit()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var got []vector.Diff[int]
	for range 3 {
		d, err := a.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, d)
	}
	want := []vector.Diff[int]{vector.Append(persist.New(1, 2)), vector.PushBack(3), vector.PushFront(0)}
	if !diffsEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestHeadDynamic(t *testing.T) {
	o := vector.New[int]()
	defer o.Close()
	o.Append(1, 2, 3, 4)
	values, sub := o.Subscribe()
	sizes := make(chan int)
	view, a := HeadDynamic(values, sub, 1, sizes)
	if got := view.Values(); !slices.Equal(got, []int{1}) {
		t.Fatalf("initial view %v", got)
	}

	// a size update wakes a reader blocked on the upstream
	done := make(chan []vector.Diff[int])
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b, _ := a.NextBatch(ctx)
		done <- b
	}()
	sizes <- 3
	select {
	case b := <-done:
		view = vector.ApplyAll(b, view)
	case <-time.After(2 * time.Second):
		t.Fatal("resize did not wake the reader")
	}
	if got := view.Values(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("after grow: %v", got)
	}

	// the upstream is still followed after the interruption
	o.PushFront(0)
	view = vector.ApplyAll(nextBatch(t, a), view)
	if got := view.Values(); !slices.Equal(got, []int{0, 1, 2}) {
		t.Fatalf("after push front: %v", got)
	}

	go func() { sizes <- 0 }()
	view = vector.ApplyAll(nextBatch(t, a), view)
	if view.Len() != 0 {
		t.Fatalf("after shrink: %v", view.Values())
	}

	close(sizes)
	o.PushFront(-1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if b, err := a.NextBatch(ctx); err == nil {
		t.Errorf("zero window produced %v", b)
	}
}

func TestTailDynamicKeepsLastSize(t *testing.T) {
	o := vector.New[int]()
	defer o.Close()
	o.Append(1, 2, 3, 4)
	values, sub := o.Subscribe()
	sizes := make(chan int, 1)
	view, a := TailDynamic(values, sub, 2, sizes)
	if got := view.Values(); !slices.Equal(got, []int{3, 4}) {
		t.Fatalf("initial view %v", got)
	}
	sizes <- 3
	view = vector.ApplyAll(nextBatch(t, a), view)
	if got := view.Values(); !slices.Equal(got, []int{2, 3, 4}) {
		t.Fatalf("after grow: %v", got)
	}

	close(sizes)
	o.PushBack(5)
	view = vector.ApplyAll(nextBatch(t, a), view)
	if got := view.Values(); !slices.Equal(got, []int{3, 4, 5}) {
		t.Fatalf("after close and push back: %v", got)
	}
	o.PushFront(0)
	o.PushBack(6)
	view = vector.ApplyAll(nextBatch(t, a), view)
	if got := view.Values(); !slices.Equal(got, []int{4, 5, 6}) {
		t.Fatalf("after push front and back: %v", got)
	}
}

func TestSkipDynamicKeepsLastSize(t *testing.T) {
	o := vector.New[int]()
	defer o.Close()
	o.Append(1, 2, 3, 4)
	values, sub := o.Subscribe()
	sizes := make(chan int)
	view, a := SkipDynamic(values, sub, 1, sizes)
	if got := view.Values(); !slices.Equal(got, []int{2, 3, 4}) {
		t.Fatalf("initial view %v", got)
	}

	done := make(chan []vector.Diff[int])
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b, _ := a.NextBatch(ctx)
		done <- b
	}()
	sizes <- 3
	select {
	case b := <-done:
		view = vector.ApplyAll(b, view)
	case <-time.After(2 * time.Second):
		t.Fatal("resize did not wake the reader")
	}
	if got := view.Values(); !slices.Equal(got, []int{4}) {
		t.Fatalf("after resize: %v", got)
	}

	close(sizes)
	o.PushFront(0)
	view = vector.ApplyAll(nextBatch(t, a), view)
	if got := view.Values(); !slices.Equal(got, []int{3, 4}) {
		t.Fatalf("after close and push front: %v", got)
	}
}
