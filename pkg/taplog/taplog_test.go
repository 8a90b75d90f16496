package taplog

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRequestBlockDeterministic(t *testing.T) {
	var buf strings.Builder
	l := New(Config{Writer: &buf, MaxBodyBytes: 2048})

	h := http.Header{}
	h.Set("Zulu", "last")
	h.Set("Alpha", "first")
	h.Set("Mike", "middle")

	l.Request(7, testTime, "GET", "http://backend:9000/a?b=c", "127.0.0.1:5555", h, nil)

	want := "\n[conn#7] 2025-06-01T12:00:00Z REQUEST GET http://backend:9000/a?b=c from 127.0.0.1:5555\n" +
		"→ alpha: first\n" +
		"→ mike: middle\n" +
		"→ zulu: last\n"
	if buf.String() != want {
		t.Errorf("block mismatch:\ngot:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestRedactionIsCaseInsensitiveAndLogOnly(t *testing.T) {
	var buf strings.Builder
	l := New(Config{Writer: &buf, RedactHeaders: []string{"Authorization"}})

	h := http.Header{}
	h.Set("authorization", "secret")
	h.Set("accept", "*/*")

	l.Request(1, testTime, "GET", "/", "peer", h, nil)

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Error("redacted value leaked into log")
	}
	if !strings.Contains(out, "→ authorization: "+RedactedMarker) {
		t.Errorf("redaction marker missing:\n%s", out)
	}
	// The header itself is untouched; redaction is a display concern.
	if h.Get("Authorization") != "secret" {
		t.Error("logger mutated the header")
	}
}

func TestBodyPreview(t *testing.T) {
	tests := []struct {
		name         string
		body         []byte
		maxBodyBytes int
		want         []string
		notWant      []string
	}{
		{
			name:         "empty body marker",
			body:         nil,
			maxBodyBytes: 10,
			want:         []string{NoBodyMarker},
		},
		{
			name:         "short body printed whole",
			body:         []byte("hello"),
			maxBodyBytes: 10,
			want:         []string{"body (5 bytes):", "hello"},
			notWant:      []string{"truncated"},
		},
		{
			name:         "long body truncated at cap",
			body:         []byte("abcdefghijklmnopqrst"),
			maxBodyBytes: 10,
			want:         []string{"body (10 / 20 bytes, truncated):", "abcdefghij"},
			notWant:      []string{"abcdefghijk"},
		},
		{
			name:         "invalid utf8 replaced not fatal",
			body:         []byte{0xff, 0xfe, 'o', 'k'},
			maxBodyBytes: 10,
			want:         []string{"ok", "\uFFFD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			l := New(Config{Writer: &buf, IncludeBodies: true, MaxBodyBytes: tt.maxBodyBytes})
			l.Response(3, testTime, 200, http.Header{}, tt.body)

			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(out, notWant) {
					t.Errorf("output unexpectedly contains %q:\n%s", notWant, out)
				}
			}
		})
	}
}

func TestBodiesOmittedWhenDisabled(t *testing.T) {
	var buf strings.Builder
	l := New(Config{Writer: &buf, IncludeBodies: false, MaxBodyBytes: 2048})
	l.Response(3, testTime, 200, http.Header{}, []byte("payload"))

	if strings.Contains(buf.String(), "payload") {
		t.Errorf("body printed with include_bodies=false:\n%s", buf.String())
	}
}

func TestResponseStatusLine(t *testing.T) {
	var buf strings.Builder
	l := New(Config{Writer: &buf})
	l.Response(42, testTime, 502, http.Header{}, nil)

	if !strings.Contains(buf.String(), "[conn#42] 2025-06-01T12:00:00Z RESPONSE 502 Bad Gateway") {
		t.Errorf("status line wrong:\n%s", buf.String())
	}
}
