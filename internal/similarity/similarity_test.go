package similarity

import "testing"

func TestExact(t *testing.T) {
	if Exact("hello", "hello") != 1 {
		t.Error("identical content should score 1")
	}
	if Exact("  hello  ", "hello") != 1 {
		t.Error("whitespace should not matter")
	}
	if Exact("hello", "world") != 0 {
		t.Error("different content should score 0")
	}
}

func TestBigram(t *testing.T) {
	if s := Bigram("deploy the service", "deploy the service"); s != 1 {
		t.Errorf("identical: %v, want 1", s)
	}
	if s := Bigram("", ""); s != 0 {
		t.Errorf("empty: %v, want 0", s)
	}
	if s := Bigram("a", "b"); s != 0 {
		t.Errorf("single chars: %v, want 0", s)
	}

	near := Bigram("deploy the service", "deploy the services")
	far := Bigram("deploy the service", "feed the cat")
	if near <= far {
		t.Errorf("near-identical %v should outscore unrelated %v", near, far)
	}
	if near < 0.8 {
		t.Errorf("near-identical = %v, want high", near)
	}
	if near > 1 || far < 0 {
		t.Errorf("scores out of range: %v, %v", near, far)
	}
}

func TestTermCosine(t *testing.T) {
	if s := TermCosine("restart the worker pool", "restart the worker pool"); s < 0.999 {
		t.Errorf("identical: %v, want ~1", s)
	}
	// Word order should not matter.
	if s := TermCosine("restart the worker pool", "the worker pool restart"); s < 0.999 {
		t.Errorf("reordered: %v, want ~1", s)
	}
	if s := TermCosine("restart the worker pool", "bake sourdough bread"); s != 0 {
		t.Errorf("disjoint: %v, want 0", s)
	}
	if s := TermCosine("", "anything"); s != 0 {
		t.Errorf("empty: %v, want 0", s)
	}

	partial := TermCosine("restart the worker pool", "drain the worker pool")
	if partial <= 0 || partial >= 1 {
		t.Errorf("partial overlap = %v, want in (0, 1)", partial)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Restart the worker-pool, NOW! x")
	want := []string{"restart", "the", "worker-pool", "now"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
