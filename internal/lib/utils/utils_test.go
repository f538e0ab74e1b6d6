package utils

import (
	"bytes"
	"testing"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, map[string]int{"created": 3}); err != nil {
		t.Fatalf("PrintJSON: %v", err)
	}
	if got := buf.String(); got != "{\n  \"created\": 3\n}\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestPrintJSONUnsupported(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, make(chan int)); err == nil {
		t.Fatalf("expected marshal error for a channel")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written on error")
	}
}
