package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/papaya-ledger/internal/data/repos/testutil"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "s3cret")
	in := &auth.Caller{ID: uuid.New(), Name: "Alice", Role: auth.RoleAdmin}
	tok, err := svc.IssueToken(in, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	got, err := svc.CallerFromToken(tok)
	if err != nil {
		t.Fatalf("CallerFromToken: %v", err)
	}
	if got.ID != in.ID || got.Name != "Alice" || !got.Privileged() {
		t.Fatalf("caller: want=%+v got=%+v", in, got)
	}
}

func TestCallerFromTokenRejectsBadTokens(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "s3cret")
	other := NewAuthService(testutil.Logger(t), "different")
	c := &auth.Caller{ID: uuid.New(), Name: "Bob", Role: "Employee"}

	wrongKey, _ := other.IssueToken(c, time.Hour)
	expired, _ := svc.IssueToken(c, -time.Minute)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{ID: "x", Name: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{"empty": "", "garbage": "abc.def", "wrong key": wrongKey, "expired": expired, "alg none": none} {
		if _, err := svc.CallerFromToken(tok); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLegacyIDsMapToStableUUID(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "s3cret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		ID:   "64b7f0c2e1a2b3c4d5e6f708",
		Name: "Carol",
		Role: "Employee",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	a, err := svc.CallerFromToken(tok)
	if err != nil {
		t.Fatalf("CallerFromToken: %v", err)
	}
	b, _ := svc.CallerFromToken(tok)
	if a.ID == uuid.Nil || a.ID != b.ID {
		t.Fatalf("legacy id should map to a stable uuid, got %s and %s", a.ID, b.ID)
	}
}
