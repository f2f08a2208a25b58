package logging

import "testing"

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	// None of these should panic on a nil logger.
	l.Print("hello")
	l.Debug("hello")
	l.Warn(nil)
}

func TestSubloggerPrefix(t *testing.T) {
	root := &Logger{}
	child := root.Sublogger("store")
	if child.prefix != "store" {
		t.Fatalf("unexpected prefix: %q", child.prefix)
	}
	grandchild := child.Sublogger("reconstruct")
	if grandchild.prefix != "store.reconstruct" {
		t.Fatalf("unexpected prefix: %q", grandchild.prefix)
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for _, name := range []string{"disabled", "error", "warn", "info", "debug", "trace"} {
		level, ok := NameToLevel(name)
		if !ok {
			t.Fatalf("NameToLevel(%q) reported invalid", name)
		}
		if level.String() != name {
			t.Fatalf("round trip mismatch: %q != %q", level.String(), name)
		}
	}
	if _, ok := NameToLevel("bogus"); ok {
		t.Fatal("expected NameToLevel to reject unknown level name")
	}
}
