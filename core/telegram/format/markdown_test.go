package format

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	got, err := EscapeMarkdown("цена_модели *SC-P8000* (москва). 100%!", MarkdownV2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `цена\_модели \*SC\-P8000\* \(москва\)\. 100%\!`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscapeMarkdownV1(t *testing.T) {
	got, err := EscapeMarkdown("a_b*c[d`e", MarkdownV1, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a\\_b\\*c\\[d\\`e"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscapeMarkdownUnsupportedVersion(t *testing.T) {
	if _, err := EscapeMarkdown("x", 3, ""); err == nil {
		t.Error("expected error for unsupported version")
	}
}
