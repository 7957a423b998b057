package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/fluxmesh/accounts/internal/errors"
	"github.com/fluxmesh/accounts/pkg/cache"
	"github.com/google/uuid"
)

func newCodeService(t *testing.T, ttl time.Duration) *AccessCodeService {
	t.Helper()

	store := cache.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	return NewAccessCodeService(store, uuid.MustParse("7e1a9f70-6c0a-4e0c-9cbd-20cbbb8a36d0"), ttl)
}

func TestAccessCodeRoundTrip(t *testing.T) {
	codes := newCodeService(t, time.Minute)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", code)
		}
	}

	if err := codes.Verify(ctx, "user@x.com", code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

// A correct code is single use.
func TestAccessCodeConsumedOnSuccess(t *testing.T) {
	codes := newCodeService(t, time.Minute)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if err := codes.Verify(ctx, "user@x.com", code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	if err := codes.Verify(ctx, "user@x.com", code); !errors.Is(err, apperrors.ErrInvalidAccessCode) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestAccessCodeWrongCode(t *testing.T) {
	codes := newCodeService(t, time.Minute)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	if err := codes.Verify(ctx, "user@x.com", wrong); !errors.Is(err, apperrors.ErrInvalidAccessCode) {
		t.Fatalf("expected ErrInvalidAccessCode, got %v", err)
	}

	// A wrong attempt does not consume the real code
	if err := codes.Verify(ctx, "user@x.com", code); err != nil {
		t.Fatalf("verify after wrong attempt failed: %v", err)
	}
}

func TestAccessCodeExpires(t *testing.T) {
	codes := newCodeService(t, 20*time.Millisecond)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if err := codes.Verify(ctx, "user@x.com", code); !errors.Is(err, apperrors.ErrInvalidAccessCode) {
		t.Fatalf("expected expired code to fail, got %v", err)
	}
}

// Regenerating replaces the previous code.
func TestAccessCodeRegenerateReplaces(t *testing.T) {
	codes := newCodeService(t, time.Minute)
	ctx := context.Background()

	first, err := codes.Generate(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	second, err := codes.Generate(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if first != second {
		if err := codes.Verify(ctx, "user@x.com", first); err == nil {
			t.Fatal("expected replaced code to be rejected")
		}
	}
	if err := codes.Verify(ctx, "user@x.com", second); err != nil {
		t.Fatalf("verify of current code failed: %v", err)
	}
}

func TestAccessCodeCaseInsensitiveEmail(t *testing.T) {
	codes := newCodeService(t, time.Minute)
	ctx := context.Background()

	code, err := codes.Generate(ctx, "User@X.com")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := codes.Verify(ctx, "user@x.com", code); err != nil {
		t.Fatalf("expected key derivation to be case insensitive: %v", err)
	}
}
