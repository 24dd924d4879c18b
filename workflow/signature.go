package workflow

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
)

const defaultSignatureTimeoutMs = 3000

func signatureTimeout() time.Duration {
	if v := os.Getenv("SIGNATURE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultSignatureTimeoutMs * time.Millisecond
}

// ConfirmSignature re-verifies the acting user's password as a digital
// signature on a lifecycle transition. Verification must complete within the
// configured window; a wrong password, a missing user, or a timeout all
// surface as ErrSignatureFailed so callers cannot distinguish the cases.
func ConfirmSignature(ctx context.Context, userId int, password string) error {
	logger := config.GetLogger()

	verifyCtx, cancel := context.WithTimeout(ctx, signatureTimeout())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		user, err := models.GetUser(verifyCtx, userId)
		if err != nil {
			done <- err
			return
		}
		if !user.IsUsable() {
			done <- models.ErrSignatureFailed
			return
		}
		done <- utils.ComparePassword(user.Password, password)
	}()

	select {
	case err := <-done:
		if err != nil {
			config.LogError(logger, "signature.go", "ConfirmSignature", "verify", userId, err)
			return models.ErrSignatureFailed
		}
		return nil
	case <-verifyCtx.Done():
		config.LogError(logger, "signature.go", "ConfirmSignature", "timeout", userId, verifyCtx.Err())
		return models.ErrSignatureFailed
	}
}
