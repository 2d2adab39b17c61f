package gcs

import "testing"

func TestContentTypeForKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"media/u1/abc-photo.jpg", "image/jpeg"},
		{"media/u1/abc-photo.JPEG", "image/jpeg"},
		{"media/u1/abc-clip.m4a", "audio/mp4"},
		{"media/u1/abc-clip.ogg", "audio/ogg"},
		{"media/u1/abc-blob", "application/octet-stream"},
	}
	for _, c := range cases {
		if got := contentTypeForKey(c.key); got != c.want {
			t.Errorf("contentTypeForKey(%q) = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestPublicURL(t *testing.T) {
	s := &Store{bucket: "my-bucket"}
	if got := s.publicURL("media/u1/x.jpg"); got != "https://storage.googleapis.com/my-bucket/media/u1/x.jpg" {
		t.Errorf("default url = %q", got)
	}

	s.publicBaseURL = "https://cdn.example.com"
	if got := s.publicURL("media/u1/x.jpg"); got != "https://cdn.example.com/media/u1/x.jpg" {
		t.Errorf("cdn url = %q", got)
	}
}
