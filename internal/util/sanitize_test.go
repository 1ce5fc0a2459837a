package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"entrance.jpg", "entrance.jpg", false},
		{"a/b.png", "a_b.png", false},
		{`a\b.png`, "a_b.png", false},
		{"../etc/passwd", "", true},
		{"   ", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := SanitizeFileName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("SanitizeFileName(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("SanitizeFileName(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestImageExt(t *testing.T) {
	if _, err := ImageExt("photo.JPG"); err != nil {
		t.Errorf("ImageExt uppercase: %v", err)
	}
	if _, err := ImageExt("doc.pdf"); err == nil {
		t.Errorf("ImageExt(.pdf): expected error")
	}
	if _, err := ImageExt("noext"); err == nil {
		t.Errorf("ImageExt(no extension): expected error")
	}
}

func TestMimeForExt(t *testing.T) {
	if got := MimeForExt(".jpeg"); got != "image/jpeg" {
		t.Errorf("MimeForExt(.jpeg) = %q", got)
	}
	if got := MimeForExt(".webp"); got != "image/webp" {
		t.Errorf("MimeForExt(.webp) = %q", got)
	}
	if got := MimeForExt(".bin"); got != "application/octet-stream" {
		t.Errorf("MimeForExt(.bin) = %q", got)
	}
}
