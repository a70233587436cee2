package idtoken

import (
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
)

const testSecret = "journal-portal-secret"

var tokenAlphabet = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestObfuscator(t *testing.T, mode Mode) *Obfuscator {
	t.Helper()
	o, err := New(Config{Secret: testSecret, Mode: mode}, quietLogger())
	if err != nil {
		t.Fatalf("New(%s): %v", mode, err)
	}
	return o
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("empty secret: got %v, want ErrEmptySecret", err)
	}
	if _, err := New(Config{Secret: testSecret, Mode: "rot13"}, nil); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("unknown mode: got %v, want ErrUnknownMode", err)
	}
}

func TestNewDefaultsToGCM(t *testing.T) {
	o, err := New(Config{Secret: testSecret}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.Mode() != ModeGCM {
		t.Fatalf("mode = %q, want %q", o.Mode(), ModeGCM)
	}
}

func TestConcreteScenarios(t *testing.T) {
	for _, mode := range []Mode{ModeGCM, ModeLegacy} {
		t.Run(string(mode), func(t *testing.T) {
			o := newTestObfuscator(t, mode)

			tok := o.EncodeInt(42)
			if tok == "" {
				t.Fatal("EncodeInt(42) returned empty token")
			}
			if got, ok := o.Decode(tok); !ok || got != "42" {
				t.Fatalf("Decode(EncodeInt(42)) = %q, %v", got, ok)
			}

			if got, ok := o.Decode(o.EncodeInt(0)); !ok || got != "0" {
				t.Fatalf("Decode(EncodeInt(0)) = %q, %v", got, ok)
			}

			if got, ok := o.Decode("not-a-valid-token!!"); ok {
				t.Fatalf("Decode(garbage) = %q, want failure", got)
			}

			if got := o.Encode(""); got != "" {
				t.Fatalf("Encode(\"\") = %q, want empty", got)
			}
			if got := o.EncodeValue(nil); got != "" {
				t.Fatalf("EncodeValue(nil) = %q, want empty", got)
			}
			if got, ok := o.Decode(""); !ok || got != "" {
				t.Fatalf("Decode(\"\") = %q, %v; want \"\", true", got, ok)
			}
		})
	}
}

func TestEncodeValueUsesCanonicalForm(t *testing.T) {
	o := newTestObfuscator(t, ModeGCM)

	cases := []struct {
		in   any
		want string
	}{
		{int(7), "7"},
		{int64(9000000000), "9000000000"},
		{uint8(3), "3"},
		{"tpl-3", "tpl-3"},
		{true, "true"},
	}
	for _, tc := range cases {
		got, ok := o.Decode(o.EncodeValue(tc.in))
		if !ok || got != tc.want {
			t.Errorf("EncodeValue(%#v) round trip = %q, %v; want %q", tc.in, got, ok, tc.want)
		}
	}
}

func TestEncodeIsNotStable(t *testing.T) {
	for _, mode := range []Mode{ModeGCM, ModeLegacy} {
		o := newTestObfuscator(t, mode)
		if o.EncodeInt(5) == o.EncodeInt(5) {
			t.Errorf("%s: two encodings of the same id were identical", mode)
		}
	}
}

func TestDecodeInt(t *testing.T) {
	o := newTestObfuscator(t, ModeGCM)

	if n, ok := o.DecodeInt(o.EncodeInt(1234)); !ok || n != 1234 {
		t.Fatalf("DecodeInt = %d, %v; want 1234, true", n, ok)
	}
	if _, ok := o.DecodeInt(""); ok {
		t.Fatal("DecodeInt(\"\") succeeded")
	}
	if _, ok := o.DecodeInt(o.Encode("twelve")); ok {
		t.Fatal("DecodeInt accepted a non-numeric identifier")
	}
	if _, ok := o.DecodeInt(o.EncodeInt(-4)); ok {
		t.Fatal("DecodeInt accepted a negative identifier")
	}
}

func TestTokensAreKeySpecific(t *testing.T) {
	a := newTestObfuscator(t, ModeGCM)
	b, err := New(Config{Secret: "a-completely-different-secret"}, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got, ok := b.Decode(a.EncodeInt(77)); ok {
		t.Fatalf("token from another key decoded to %q", got)
	}
}

func TestModesDoNotCrossDecode(t *testing.T) {
	gcm := newTestObfuscator(t, ModeGCM)
	legacy := newTestObfuscator(t, ModeLegacy)

	if _, ok := legacy.Decode(gcm.EncodeInt(10)); ok {
		t.Error("legacy obfuscator accepted a gcm token")
	}
	if _, ok := gcm.Decode(legacy.EncodeInt(10)); ok {
		t.Error("gcm obfuscator accepted a legacy token")
	}
}

// Vectors produced with:
//
//	printf 42 | openssl enc -aes-256-cbc -md md5 -pass pass:journal-portal-secret -S 0102030405060708
//
// and the "Salted__" header prepended, as passphrase-based browser libraries emit it.
func TestLegacyDecodesOpenSSLPayloads(t *testing.T) {
	o := newTestObfuscator(t, ModeLegacy)

	cases := map[string]string{
		"U2FsdGVkX18BAgMEBQYHCEa2aLk8yz9muKN2QqxEs6Q": "42",
		"U2FsdGVkX1-hssPU5fYHGDaeew5pR2NlV5uT_M6c5WA": "conference-17",
	}
	for tok, want := range cases {
		if got, ok := o.Decode(tok); !ok || got != want {
			t.Errorf("Decode(%q) = %q, %v; want %q", tok, got, ok, want)
		}
	}

	// The same payloads in standard padded Base64 are accepted after normalisation.
	if got, ok := o.Decode("U2FsdGVkX18BAgMEBQYHCEa2aLk8yz9muKN2QqxEs6Q="); !ok || got != "42" {
		t.Errorf("padded token = %q, %v", got, ok)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	for _, mode := range []Mode{ModeGCM, ModeLegacy} {
		o := newTestObfuscator(t, mode)
		inputs := []string{
			"a",
			"ab",
			"abc",
			"abcd",
			"%%%%",
			"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			"U2FsdGVkX18",
			strings.Repeat("_", 64),
			"héllo",
			"\x00\x01\x02",
		}
		for _, in := range inputs {
			if got, ok := o.Decode(in); ok {
				t.Errorf("%s: Decode(%q) = %q, want failure", mode, in, got)
			}
		}
	}
}

func TestGCMRejectsEverySingleCharacterTamper(t *testing.T) {
	o := newTestObfuscator(t, ModeGCM)
	tok := o.EncodeInt(31337)
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	for i := 0; i < len(tok); i++ {
		for _, c := range alphabet {
			if byte(c) == tok[i] {
				continue
			}
			tampered := tok[:i] + string(c) + tok[i+1:]
			if got, ok := o.Decode(tampered); ok {
				t.Fatalf("tampered token at %d (%q) decoded to %q", i, c, got)
			}
		}
	}
}

func TestConcurrentUse(t *testing.T) {
	o := newTestObfuscator(t, ModeGCM)

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				tok := o.EncodeInt(id)
				if !tokenAlphabet.MatchString(tok) {
					errs <- "token outside alphabet: " + tok
					return
				}
				if n, ok := o.DecodeInt(tok); !ok || n != id {
					errs <- "round trip failed"
					return
				}
			}
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}

func TestAlphabetTransform(t *testing.T) {
	cases := []struct{ std, safe string }{
		{"ab+/cd==", "ab-_cd"},
		{"abcd", "abcd"},
		{"a+b=", "a-b"},
	}
	for _, tc := range cases {
		if got := toURLSafe(tc.std); got != tc.safe {
			t.Errorf("toURLSafe(%q) = %q, want %q", tc.std, got, tc.safe)
		}
		if got := fromURLSafe(tc.safe); got != tc.std {
			t.Errorf("fromURLSafe(%q) = %q, want %q", tc.safe, got, tc.std)
		}
	}
}
