package nanotts

import "testing"

func TestNormalizeInputAcceptsSupportedShapes(t *testing.T) {
	if in, err := normalizeInput("hello"); err != nil || in.kind != inputKindString {
		t.Errorf("string: got (%+v, %v)", in, err)
	}
	if in, err := normalizeInput([]string{"a", "b"}); err != nil || in.kind != inputKindSlice {
		t.Errorf("[]string: got (%+v, %v)", in, err)
	}
	ch := make(chan string)
	if in, err := normalizeInput(ch); err != nil || in.kind != inputKindChan {
		t.Errorf("chan string: got (%+v, %v)", in, err)
	}
	if in, err := normalizeInput(StringInput("already wrapped")); err != nil || in.kind != inputKindString {
		t.Errorf("Input passthrough: got (%+v, %v)", in, err)
	}
}

func TestNormalizeInputRejectsUnsupportedType(t *testing.T) {
	_, err := normalizeInput(42)
	if err == nil {
		t.Fatal("expected an error for an unsupported input type")
	}
}
