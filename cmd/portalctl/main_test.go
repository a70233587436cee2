package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/papeesearch/portal/internal/auth"
	"github.com/papeesearch/portal/internal/models"
)

const testIDSecret = "portalctl-test-secret"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run([]string{"encode", "--id-secret", testIDSecret, "42", "7"}, &out, &errOut); err != nil {
		t.Fatalf("encode: %v", err)
	}
	tokens := strings.Fields(out.String())
	if len(tokens) != 2 {
		t.Fatalf("encode printed %q", out.String())
	}

	out.Reset()
	if err := run(append([]string{"decode", "--id-secret", testIDSecret}, tokens...), &out, &errOut); err != nil {
		t.Fatalf("decode: %v (%s)", err, errOut.String())
	}
	if got := strings.Fields(out.String()); len(got) != 2 || got[0] != "42" || got[1] != "7" {
		t.Fatalf("decode printed %q", out.String())
	}
}

func TestDecodeFailureExitsOne(t *testing.T) {
	var out, errOut bytes.Buffer
	run([]string{"encode", "--id-secret", testIDSecret, "9"}, &out, &errOut)
	good := strings.TrimSpace(out.String())

	out.Reset()
	err := run([]string{"decode", "--id-secret", testIDSecret, good, "not-a-token"}, &out, &errOut)
	var coded *exitError
	if !errors.As(err, &coded) || coded.ExitCode() != 1 {
		t.Fatalf("err = %v, want exit code 1", err)
	}
	if strings.TrimSpace(out.String()) != "9" {
		t.Fatalf("valid token not decoded: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "not-a-token") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestTokenCommand(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	var out bytes.Buffer
	if err := run([]string{"token", "--jwt-secret", secret, "--user", "12", "--role", "subadmin"}, &out, &bytes.Buffer{}); err != nil {
		t.Fatalf("token: %v", err)
	}

	svc := auth.NewService(&auth.Config{JWTSecret: []byte(secret), TokenExpiry: time.Hour}, nil)
	claims, err := svc.ValidateToken(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("minted token invalid: %v", err)
	}
	if claims.UserID != 12 || claims.Role != models.RoleSubadmin {
		t.Fatalf("claims = %+v", claims)
	}

	if err := run([]string{"token", "--jwt-secret", secret, "--role", "owner"}, &out, &bytes.Buffer{}); err == nil {
		t.Fatal("unknown role accepted")
	}
	if err := run([]string{"token", "--jwt-secret", "short"}, &out, &bytes.Buffer{}); err == nil {
		t.Fatal("short secret accepted")
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"frobnicate"},
		{"encode", "--id-secret", testIDSecret},
	} {
		err := run(args, &bytes.Buffer{}, &bytes.Buffer{})
		var coded *exitError
		if !errors.As(err, &coded) || coded.ExitCode() != 2 {
			t.Errorf("run(%q) = %v, want exit code 2", args, err)
		}
	}

	t.Setenv("PORTAL_ID_SECRET", "")
	if err := run([]string{"encode", "1"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("encode without a secret succeeded")
	}
}
