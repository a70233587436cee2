// Package idtoken hides numeric database keys behind opaque, URL-safe tokens.
//
// An Obfuscator encrypts the canonical string form of an identifier and
// renders the ciphertext in the URL-safe Base64 alphabet without padding, so
// a token can be placed directly in a URL path segment. Encoding draws fresh
// randomness on every call: the same identifier produces a different token
// each time, and callers must only rely on Decode(Encode(x)) == x.
//
// Decode never fails loudly. Malformed, tampered or foreign tokens are
// reported through the boolean result so that consumers can render a plain
// "not found" response.
package idtoken

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"
)

// Mode selects the sealing scheme used for tokens.
type Mode string

const (
	// ModeGCM derives an AES-256 key once with HKDF-SHA256 and seals each
	// identifier with AES-GCM under a random nonce. Tampered tokens are rejected.
	ModeGCM Mode = "gcm"
	// ModeLegacy reproduces the OpenSSL passphrase format: a random salt per
	// call, EVP_BytesToKey(MD5) key/IV derivation and AES-256-CBC. Tokens
	// carry no authentication tag.
	ModeLegacy Mode = "legacy"
)

// Errors returned by New.
var (
	ErrEmptySecret = errors.New("idtoken: secret is required")
	ErrUnknownMode = errors.New("idtoken: unknown mode")
)

var (
	errMalformed = errors.New("malformed token")
	errNotText   = errors.New("token does not hold a text identifier")
	errNotNumber = errors.New("identifier is not a non-negative integer")
)

// payloadEncoding rejects non-zero trailing bits so that every payload has
// exactly one textual form.
var payloadEncoding = base64.StdEncoding.Strict()

// Config holds the secret key and sealing mode for an Obfuscator.
type Config struct {
	// Secret is the process-wide symmetric key. Encode and Decode must share it.
	Secret string
	// Mode defaults to ModeGCM when empty.
	Mode Mode
}

// sealer encrypts and decrypts raw identifier bytes.
type sealer interface {
	seal(plaintext []byte) ([]byte, error)
	open(payload []byte) ([]byte, error)
}

// Obfuscator converts identifiers to tokens and back.
// It is immutable after New and safe for concurrent use.
type Obfuscator struct {
	mode   Mode
	sealer sealer
	logger *slog.Logger
}

// New builds an Obfuscator from cfg. Key material is derived here, once.
func New(cfg Config, logger *slog.Logger) (*Obfuscator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModeGCM
	}

	var (
		s   sealer
		err error
	)
	switch mode {
	case ModeGCM:
		s, err = newGCMSealer(cfg.Secret)
	case ModeLegacy:
		s = newLegacySealer(cfg.Secret)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if err != nil {
		return nil, err
	}

	return &Obfuscator{
		mode:   mode,
		sealer: s,
		logger: logger.With("component", "idtoken"),
	}, nil
}

// Mode reports the sealing mode in use.
func (o *Obfuscator) Mode() Mode {
	return o.mode
}

// Encode returns the opaque token for id. An empty id yields an empty token.
func (o *Obfuscator) Encode(id string) string {
	if id == "" {
		return ""
	}

	payload, err := o.sealer.seal([]byte(id))
	if err != nil {
		o.logger.Error("failed to seal identifier", "error", err)
		return ""
	}

	return toURLSafe(payloadEncoding.EncodeToString(payload))
}

// EncodeInt encodes the decimal form of id.
func (o *Obfuscator) EncodeInt(id int64) string {
	return o.Encode(strconv.FormatInt(id, 10))
}

// EncodeValue encodes the canonical string form of v as produced by fmt.Sprint.
// A nil value yields an empty token.
func (o *Obfuscator) EncodeValue(v any) string {
	if v == nil {
		return ""
	}
	return o.Encode(fmt.Sprint(v))
}

// Decode recovers the identifier carried by token.
//
// An empty token decodes to ("", true). Any other token that cannot be opened
// with this Obfuscator's key, or that does not hold non-empty UTF-8 text,
// yields ("", false).
func (o *Obfuscator) Decode(token string) (string, bool) {
	if token == "" {
		return "", true
	}

	id, err := o.decode(token)
	if err != nil {
		o.logger.Debug("rejected identifier token", "error", err, "token_length", len(token))
		return "", false
	}
	return id, true
}

// DecodeInt decodes token and parses it as a non-negative base-10 integer.
// Empty tokens are rejected since no entity has an empty key.
func (o *Obfuscator) DecodeInt(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}

	id, ok := o.Decode(token)
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		o.logger.Debug("rejected identifier token", "error", errNotNumber)
		return 0, false
	}
	return n, true
}

func (o *Obfuscator) decode(token string) (string, error) {
	payload, err := payloadEncoding.DecodeString(fromURLSafe(token))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errMalformed, err)
	}

	plaintext, err := o.sealer.open(payload)
	if err != nil {
		return "", err
	}

	if len(plaintext) == 0 || !utf8.Valid(plaintext) {
		return "", errNotText
	}
	return string(plaintext), nil
}
