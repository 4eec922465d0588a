package fingerprint

import (
	"sync"
	"testing"
)

func TestDeterminism(t *testing.T) {
	a := Compute([]byte("def foo():\n    return 1\n"), "3.11")
	b := Compute([]byte("def foo():\n    return 1\n"), "3.11")
	if a != b {
		t.Error("identical inputs must yield identical fingerprints")
	}
}

func TestCorpusDistinctness(t *testing.T) {
	corpus := []struct {
		source string
		tag    string
	}{
		{"def foo():\n    return 1\n", "3.11"},
		{"def foo():\n    return 1\n", "3.12"},
		{"def foo():\n    return 1", "3.11"},   // trailing newline removed
		{"def foo():\n    return  1\n", "3.11"}, // extra space
		{"def bar():\n    return 1\n", "3.11"},
		{"", "3.11"},
		{"", ""},
		{"x", ""},
		{"", "x"}, // boundary shift between source and tag
	}

	seen := make(map[Fingerprint]int)
	for i, c := range corpus {
		fp := Compute([]byte(c.source), c.tag)
		if prev, dup := seen[fp]; dup {
			t.Errorf("corpus entries %d and %d collide", prev, i)
		}
		seen[fp] = i
	}
}

func TestStringWidth(t *testing.T) {
	fp := Compute([]byte("print('hi')"), "3.11")
	if len(fp.String()) != Size*2 {
		t.Errorf("expected %d hex chars, got %d", Size*2, len(fp.String()))
	}
}

func TestConcurrentUse(t *testing.T) {
	want := Compute([]byte("import os\n"), "3.11")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Compute([]byte("import os\n"), "3.11"); got != want {
				t.Errorf("concurrent compute diverged")
			}
		}()
	}
	wg.Wait()
}
