package codec

import "testing"

func TestRLERoundTrip(t *testing.T) {
	cases := []string{
		"aaaaa",
		"banana",
		"",
		"abcdefg",
		"aaabbbccc",
	}
	for _, text := range cases {
		encoded := RLE([]byte(text))
		decoded := InverseRLE(encoded)
		if string(decoded) != text {
			t.Errorf("InverseRLE(RLE(%q)) = %q", text, decoded)
		}
	}
}

func TestRLERunMarker(t *testing.T) {
	// spec.md §8: "aaaaa" is a single run, so RLE emits the 0xFF marker
	// followed by one length byte (5) and one character byte ('a').
	encoded := RLE([]byte("aaaaa"))
	if encoded[0] != 0xFF {
		t.Fatalf("RLE(\"aaaaa\")[0] = %#x, want 0xFF", encoded[0])
	}
	if len(encoded) != 3 {
		t.Fatalf("len(RLE(\"aaaaa\")) = %d, want 3", len(encoded))
	}
	if encoded[1] != 5 || encoded[2] != 'a' {
		t.Fatalf("RLE(\"aaaaa\") = %v, want [0xFF 5 'a']", encoded)
	}
}

func TestRLEAbandonsWhenNotSmaller(t *testing.T) {
	// All-distinct bytes: lengths+chars would be 2*len(text), which is not
	// smaller than (2/3)*len(text), so RLE falls back to the 0x00 marker.
	text := []byte("abcdefgh")
	encoded := RLE(text)
	if encoded[0] != 0x00 {
		t.Fatalf("RLE(%q)[0] = %#x, want 0x00", text, encoded[0])
	}
	if string(encoded[1:]) != string(text) {
		t.Fatalf("RLE(%q) fallback payload = %q, want %q", text, encoded[1:], text)
	}
}

func TestRLEEmpty(t *testing.T) {
	encoded := RLE(nil)
	if len(encoded) != 1 || encoded[0] != 0xFF {
		t.Fatalf("RLE(nil) = %v, want [0xFF]", encoded)
	}
	if got := InverseRLE(encoded); len(got) != 0 {
		t.Fatalf("InverseRLE(RLE(nil)) = %v, want empty", got)
	}
}
