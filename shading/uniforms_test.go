package shading

import (
	"math"
	"testing"

	"github.com/richinsley/geezmosaic/palette"
)

func TestUpdateIdempotent(t *testing.T) {
	u := NewUniforms(DefaultParams, 10)

	u.Update(200, 4, 1.5)
	first := u.Cells()
	firstParams := u.Params()

	u.Update(200, 4, 1.5)
	second := u.Cells()

	if u.Params() != firstParams {
		t.Fatalf("params changed: %v vs %v", firstParams, u.Params())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cell %d changed: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestUpdateLeavesStaleCells(t *testing.T) {
	u := NewUniforms(Params{BaseHue: 0, PaletteSize: 5, Gamma: 1}, 5)
	before := u.Cells()

	u.Update(90, 2, 1)
	after := u.Cells()

	want := palette.Generate(90, 2)
	if after[0] != want[0] || after[1] != want[1] {
		t.Fatalf("expected first two cells regenerated")
	}
	for i := 2; i < 5; i++ {
		if after[i] != before[i] {
			t.Fatalf("cell %d should be stale; have %v, was %v", i, after[i], before[i])
		}
	}

	snap := u.Snapshot()
	if len(snap.Palette) != 2 {
		t.Fatalf("expected snapshot palette of 2; have %d", len(snap.Palette))
	}
}

func TestUpdateGrowsCapacity(t *testing.T) {
	u := NewUniforms(Params{PaletteSize: 2, Gamma: 1}, 2)
	if u.Capacity() != 2 {
		t.Fatalf("expected capacity 2; have %d", u.Capacity())
	}

	u.Update(0, 8, 1)
	if u.Capacity() != 8 {
		t.Fatalf("expected capacity 8 after growth; have %d", u.Capacity())
	}
	if len(u.Snapshot().Palette) != 8 {
		t.Fatalf("expected 8 active colours")
	}
}

func TestUpdateClamps(t *testing.T) {
	u := NewUniforms(DefaultParams, 10)

	tests := []struct {
		in   Params
		want Params
	}{
		{Params{BaseHue: -10, PaletteSize: 0, Gamma: 0}, Params{BaseHue: 0, PaletteSize: 1, Gamma: MinGamma}},
		{Params{BaseHue: 400, PaletteSize: 99, Gamma: 100}, Params{BaseHue: 360, PaletteSize: 10, Gamma: MaxGamma}},
		{Params{BaseHue: math.NaN(), PaletteSize: -4, Gamma: math.NaN()}, Params{BaseHue: 0, PaletteSize: 1, Gamma: MinGamma}},
		{Params{BaseHue: 180, PaletteSize: 3, Gamma: 2}, Params{BaseHue: 180, PaletteSize: 3, Gamma: 2}},
	}

	for _, tt := range tests {
		u.Set(tt.in)
		if have := u.Params(); have != tt.want {
			t.Fatalf("Set(%+v): expected %+v; have %+v", tt.in, tt.want, have)
		}
	}
}

func TestSubscribe(t *testing.T) {
	u := NewUniforms(DefaultParams, 10)

	var calls int
	var last Snapshot
	u.Subscribe(func(s Snapshot) {
		calls++
		last = s
	})

	v := u.Version()
	u.Update(30, 3, 2)

	if calls != 1 {
		t.Fatalf("expected 1 notification; have %d", calls)
	}
	if last.Version != v+1 || last.PaletteSize != 3 || len(last.Palette) != 3 {
		t.Fatalf("unexpected snapshot %+v", last)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	u := NewUniforms(DefaultParams, 10)
	snap := u.Snapshot()
	first := snap.Palette[0]

	u.Update(180, 5, 1)
	if snap.Palette[0] != first {
		t.Fatalf("snapshot palette changed after update")
	}
}
