package binding

import (
	"testing"

	"github.com/cellgraph/cellgraph"
)

func TestDefaultUse_ReturnsInitialValueAndSubscribes(t *testing.T) {
	src := cellgraph.NewSource(1)

	var got []int
	use := DefaultUse[int](func(v int) { got = append(got, v) })

	value, cleanup := use(src)
	if value != 1 {
		t.Fatalf("expected initial value 1, got %d", value)
	}

	src.Write(2)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected onChange to observe [2], got %v", got)
	}

	cleanup()
	src.Write(3)
	if len(got) != 1 {
		t.Fatalf("expected cleanup to stop further notifications, got %v", got)
	}
}

func TestDefaultUse_SatisfiesComputedAsSource(t *testing.T) {
	src := cellgraph.NewSource(2)
	doubled := cellgraph.NewComputed(func() int { return src.Read() * 2 })

	use := DefaultUse[int](func(int) {})
	value, cleanup := use(doubled)
	defer cleanup()

	if value != 4 {
		t.Fatalf("expected 4, got %d", value)
	}
}
