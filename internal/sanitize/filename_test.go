package sanitize

import "testing"

func TestToSafeFilename_Basics(t *testing.T) {
	got := ToSafeFilename("Ch.12: Hello/\\*?\"<>| World", "PNG")
	if got != "Ch.12_ Hello_ World.png" {
		t.Fatalf("got %q", got)
	}
}

func TestToSafeFilename_Defaults(t *testing.T) {
	got := ToSafeFilename("", "")
	if got != "chapter.jpg" {
		t.Fatalf("got %q", got)
	}
	if got := ToSafeFilename("..", "jpg"); got != "chapter.jpg" {
		t.Fatalf("dots: got %q", got)
	}
}

func TestToSafeFilename_Long(t *testing.T) {
	title := "a"
	for len(title) < 200 {
		title += "a"
	}
	got := ToSafeFilename(title, "jpg")
	if len(got) > 124 { // name(120)+.ext
		t.Fatalf("too long: %d", len(got))
	}
}

func TestToSafeDirname(t *testing.T) {
	if got := ToSafeDirname(" Vol.1 Ch.3: Start "); got != "Vol.1 Ch.3_ Start" {
		t.Fatalf("got %q", got)
	}
	if got := ToSafeDirname("../.."); got != "_" {
		t.Fatalf("got %q", got)
	}
}

func TestPageFilename(t *testing.T) {
	tests := []struct {
		index, total int
		ext, want    string
	}{
		{0, 20, "jpg", "001.jpg"},
		{9, 20, "png", "010.png"},
		{41, 1200, "webp", "0042.webp"},
		{0, 1, "", "001.jpg"},
	}
	for _, tt := range tests {
		if got := PageFilename(tt.index, tt.total, tt.ext); got != tt.want {
			t.Errorf("PageFilename(%d, %d, %q) = %q, want %q", tt.index, tt.total, tt.ext, got, tt.want)
		}
	}
}
