package checksum

import "testing"

func TestCRC32KnownVectors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want uint32
	}{
		{"digits", "123456789", 0xCBF43926},
		{"empty", "", 0x00000000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CRC32([]byte(c.in)); got != c.want {
				t.Errorf("CRC32(%q) = 0x%08X, want 0x%08X", c.in, got, c.want)
			}
		})
	}
}

func TestXOR(t *testing.T) {
	got := XOR(0xEF, []byte{0xAA})
	if want := byte(0x45); got != want {
		t.Errorf("XOR(0xEF, 0xAA) = 0x%02X, want 0x%02X", got, want)
	}
}

func TestXORMultiByteSeeded(t *testing.T) {
	// An even count of an identical byte folds to zero (a^a=0 for each
	// pair), so the running checksum collapses back to the seed.
	block := make([]byte, 4096)
	for i := range block {
		block[i] = 0xAA
	}
	got := XOR(0xEF, block)
	if want := byte(0xEF); got != want {
		t.Errorf("XOR over repeated 0xAA block = 0x%02X, want 0x%02X", got, want)
	}

	// An odd count leaves exactly one unpaired byte applied against the seed.
	got = XOR(0xEF, block[:4095])
	if want := byte(0x45); got != want {
		t.Errorf("XOR over odd-length 0xAA block = 0x%02X, want 0x%02X", got, want)
	}
}

func TestMD5KnownVector(t *testing.T) {
	got := MD5([]byte(""))
	want := [16]byte{0xd4, 0x1d, 0x8c, 0xd9, 0x8f, 0x00, 0xb2, 0x04, 0xe9, 0x80, 0x09, 0x98, 0xec, 0xf8, 0x42, 0x7e}
	if got != want {
		t.Errorf("MD5(\"\") = %x, want %x", got, want)
	}
}
