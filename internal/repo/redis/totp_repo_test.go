package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTOTPRepoPendingSecretExpires(t *testing.T) {
	mr, client := newMiniRedis(t)
	repo := NewTOTPRepo(client)
	ctx := context.Background()
	userID := uuid.New()

	if err := repo.SetPendingTOTP(ctx, userID, "JBSWY3DPEHPK3PXP", time.Minute); err != nil {
		t.Fatalf("set pending: %v", err)
	}
	secret, ok, err := repo.GetPendingTOTP(ctx, userID)
	if err != nil || !ok || secret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("unexpected pending: %q %v %v", secret, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, err := repo.GetPendingTOTP(ctx, userID); err != nil || ok {
		t.Fatalf("pending secret should expire: ok=%v err=%v", ok, err)
	}
}
