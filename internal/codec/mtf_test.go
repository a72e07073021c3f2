package codec

import "testing"

func TestMTFRoundTrip(t *testing.T) {
	cases := []string{
		"aaaaa",
		"banana",
		"abcdefg",
		"mississippi",
	}
	for _, text := range cases {
		encoded := MTF([]byte(text))
		if len(encoded) != len(text)+32 {
			t.Fatalf("len(MTF(%q)) = %d, want %d", text, len(encoded), len(text)+32)
		}
		decoded := InverseMTF(encoded)
		if string(decoded) != text {
			t.Errorf("InverseMTF(MTF(%q)) = %q", text, decoded)
		}
	}
}

func TestMTFSingleSymbolAlphabet(t *testing.T) {
	// With only one distinct byte present, every output position is 0 (it
	// is always already at the front).
	encoded := MTF([]byte("aaaaa"))
	for i := 0; i < 5; i++ {
		if encoded[i] != 0 {
			t.Fatalf("MTF(\"aaaaa\")[%d] = %d, want 0", i, encoded[i])
		}
	}
}

func TestMTFEmpty(t *testing.T) {
	encoded := MTF(nil)
	if len(encoded) != 32 {
		t.Fatalf("len(MTF(nil)) = %d, want 32", len(encoded))
	}
	if got := InverseMTF(encoded); len(got) != 0 {
		t.Fatalf("InverseMTF(MTF(nil)) = %v, want empty", got)
	}
}
