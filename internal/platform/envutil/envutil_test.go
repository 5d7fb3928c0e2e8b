package envutil

import (
	"testing"
	"time"
)

func TestDurationAcceptsMillisAndGoSyntax(t *testing.T) {
	t.Setenv("BATCH_DELAY_TEST", "1500")
	if got := Duration("BATCH_DELAY_TEST", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("Duration(ms): want=%v got=%v", 1500*time.Millisecond, got)
	}
	t.Setenv("BATCH_DELAY_TEST", "2s")
	if got := Duration("BATCH_DELAY_TEST", time.Second); got != 2*time.Second {
		t.Fatalf("Duration(go): want=%v got=%v", 2*time.Second, got)
	}
	t.Setenv("BATCH_DELAY_TEST", "soon")
	if got := Duration("BATCH_DELAY_TEST", time.Second); got != time.Second {
		t.Fatalf("Duration(invalid): want=%v got=%v", time.Second, got)
	}
}

func TestBoolAndFloatFallbacks(t *testing.T) {
	t.Setenv("FLAG_TEST", "off")
	if Bool("FLAG_TEST", true) {
		t.Fatalf("Bool: want=false got=true")
	}
	t.Setenv("FLAG_TEST", "maybe")
	if !Bool("FLAG_TEST", true) {
		t.Fatalf("Bool(default): want=true got=false")
	}
	t.Setenv("RATIO_TEST", "0.25")
	if got := Float("RATIO_TEST", 1); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
	if got := Int("UNSET_INT_TEST", 7); got != 7 {
		t.Fatalf("Int(default): want=7 got=%d", got)
	}
}
