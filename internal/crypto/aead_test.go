package crypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"
)

func mustKey(t testing.TB) Key {
	t.Helper()
	k, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestSeal_Open_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("Hello World")},
		{"json", []byte(`{"foo": "bar", "num": 123}`)},
		{"binary", []byte{0x00, 0xff, 0x7f, 0x80}},
		{"large", make([]byte, 1<<20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := mustKey(t)

			envelope, err := Seal(key, tt.plaintext)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}

			expectedLen := NonceSize + len(tt.plaintext) + TagSize
			if len(envelope) != expectedLen {
				t.Errorf("envelope length = %d, want %d", len(envelope), expectedLen)
			}

			decrypted, err := Open(key, envelope)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(decrypted, tt.plaintext) {
				t.Error("decrypted plaintext does not match")
			}
		})
	}
}

func TestSealWithNonce_FixedLayout(t *testing.T) {
	key := mustKey(t)
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		t.Fatal(err)
	}

	envelope, err := SealWithNonce(key, []byte("data"), nonce)
	if err != nil {
		t.Fatal(err)
	}

	// First 12 bytes should be the nonce
	if !bytes.Equal(envelope[:NonceSize], nonce) {
		t.Error("envelope doesn't start with nonce")
	}
}

func TestSealWithNonce_InvalidNonceSize(t *testing.T) {
	key := mustKey(t)
	for _, size := range []int{0, 8, 16, 24} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			_, err := SealWithNonce(key, []byte("test"), make([]byte, size))
			if !errors.Is(err, ErrInvalidNonceSize) {
				t.Errorf("expected ErrInvalidNonceSize, got %v", err)
			}
		})
	}
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	key := mustKey(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		envelope, err := Seal(key, []byte("same plaintext"))
		if err != nil {
			t.Fatal(err)
		}
		nonce := string(envelope[:NonceSize])
		if seen[nonce] {
			t.Fatal("nonce reused across Seal calls")
		}
		seen[nonce] = true
	}
}

func TestOpen_TooShort(t *testing.T) {
	key := mustKey(t)

	for _, length := range []int{0, NonceSize, EnvelopeOverhead - 1} {
		t.Run(fmt.Sprint(length), func(t *testing.T) {
			plaintext, err := Open(key, make([]byte, length))
			if !errors.Is(err, ErrAuthenticationFailed) {
				t.Errorf("expected ErrAuthenticationFailed, got %v", err)
			}
			if plaintext != nil {
				t.Error("plaintext returned for truncated envelope")
			}
		})
	}
}

func TestOpen_BitFlipAnywhere(t *testing.T) {
	key := mustKey(t)
	envelope, err := Seal(key, []byte("sensitive data"))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(envelope); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := bytes.Clone(envelope)
			tampered[i] ^= 1 << bit

			plaintext, err := Open(key, tampered)
			if !errors.Is(err, ErrAuthenticationFailed) {
				t.Fatalf("byte %d bit %d: expected ErrAuthenticationFailed, got %v", i, bit, err)
			}
			if plaintext != nil {
				t.Fatalf("byte %d bit %d: plaintext returned for tampered envelope", i, bit)
			}
		}
	}
}

func TestOpen_WrongKey(t *testing.T) {
	envelope, err := Seal(mustKey(t), []byte("sensitive data"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Open(mustKey(t), envelope)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestOpen_Truncated(t *testing.T) {
	key := mustKey(t)
	envelope, err := Seal(key, []byte("sensitive data"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Open(key, envelope[:len(envelope)-1])
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestSealText_OpenText(t *testing.T) {
	key := mustKey(t)

	encoded, err := SealText(key, "Hello World")
	if err != nil {
		t.Fatal(err)
	}

	text, err := OpenText(key, encoded)
	if err != nil {
		t.Fatalf("OpenText() error = %v", err)
	}
	if text != "Hello World" {
		t.Errorf("OpenText() = %q, want Hello World", text)
	}

	t.Run("garbage encoding", func(t *testing.T) {
		_, err := OpenText(key, "not base64!!")
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("expected ErrAuthenticationFailed, got %v", err)
		}
	})
}

func TestSeal_RandReaderFailure(t *testing.T) {
	restore := SetRandReaderForTesting(bytes.NewReader(nil))
	defer restore()

	var key Key
	if _, err := Seal(key, []byte("x")); err == nil {
		t.Error("expected error when the random source is exhausted")
	}
}

func BenchmarkSeal(b *testing.B) {
	key := mustKey(b)
	plaintext := make([]byte, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Seal(key, plaintext)
	}
}

func BenchmarkOpen(b *testing.B) {
	key := mustKey(b)
	envelope, _ := Seal(key, make([]byte, 1000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Open(key, envelope)
	}
}

// Example_sealOpen demonstrates sealing and opening a payload.
func Example_sealOpen() {
	key, err := GenerateKey()
	if err != nil {
		panic(err)
	}

	envelope, err := Seal(key, []byte("Hello, World!"))
	if err != nil {
		panic(err)
	}

	plaintext, err := Open(key, envelope)
	if err != nil {
		panic(err)
	}

	fmt.Println(string(plaintext))
	// Output: Hello, World!
}
