package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	totpPeriod     = 30
	totpSetupTTL   = 10 * time.Minute
	totpQRCodeSize = 256
)

var (
	ErrTOTPRequired      = errors.New("one-time code required")
	ErrInvalidTOTP       = errors.New("invalid one-time code")
	ErrTOTPSetupNotFound = errors.New("no pending one-time code setup")
)

// TOTPStore holds confirmed secrets. GetTOTPSecret returns "" for users who
// never enrolled.
type TOTPStore interface {
	GetTOTPSecret(ctx context.Context, userID uuid.UUID) (string, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
}

// PendingTOTPStore holds secrets between setup and the first valid code.
type PendingTOTPStore interface {
	SetPendingTOTP(ctx context.Context, userID uuid.UUID, secret string, ttl time.Duration) error
	GetPendingTOTP(ctx context.Context, userID uuid.UUID) (string, bool, error)
	DeletePendingTOTP(ctx context.Context, userID uuid.UUID) error
}

type TOTPSetup struct {
	Secret        string
	OTPAuthURL    string
	QRCodeDataURL string
	ExpiresAt     time.Time
}

// SecondFactor is the optional TOTP step-up for admin accounts. Admins that
// never enrolled pass Verify without a code.
type SecondFactor struct {
	store   TOTPStore
	pending PendingTOTPStore
	issuer  string
	now     func() time.Time
}

func NewSecondFactor(store TOTPStore, pending PendingTOTPStore, issuer string) *SecondFactor {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = "Advent Calendar"
	}
	return &SecondFactor{
		store:   store,
		pending: pending,
		issuer:  issuer,
		now:     time.Now,
	}
}

func (f *SecondFactor) Setup(ctx context.Context, userID uuid.UUID, accountName string) (TOTPSetup, error) {
	if userID == uuid.Nil {
		return TOTPSetup{}, ErrInvalidInput
	}
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		accountName = userID.String()
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      f.issuer,
		AccountName: accountName,
		Algorithm:   otp.AlgorithmSHA1,
		Digits:      otp.DigitsSix,
		Period:      totpPeriod,
	})
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("generate totp secret: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, totpQRCodeSize)
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("encode totp qr: %w", err)
	}

	if err := f.pending.SetPendingTOTP(ctx, userID, key.Secret(), totpSetupTTL); err != nil {
		return TOTPSetup{}, fmt.Errorf("store pending totp: %w", err)
	}

	return TOTPSetup{
		Secret:        key.Secret(),
		OTPAuthURL:    key.URL(),
		QRCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ExpiresAt:     f.now().Add(totpSetupTTL),
	}, nil
}

// Confirm activates the pending secret once the authenticator produces a
// valid code for it.
func (f *SecondFactor) Confirm(ctx context.Context, userID uuid.UUID, code string) error {
	secret, ok, err := f.pending.GetPendingTOTP(ctx, userID)
	if err != nil {
		return fmt.Errorf("get pending totp: %w", err)
	}
	if !ok {
		return ErrTOTPSetupNotFound
	}
	if !validateTOTP(secret, code, f.now()) {
		return ErrInvalidTOTP
	}

	if err := f.store.SetTOTPSecret(ctx, userID, secret); err != nil {
		return fmt.Errorf("save totp secret: %w", err)
	}
	if err := f.pending.DeletePendingTOTP(ctx, userID); err != nil {
		return fmt.Errorf("delete pending totp: %w", err)
	}
	return nil
}

func (f *SecondFactor) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	secret, err := f.store.GetTOTPSecret(ctx, userID)
	if err != nil {
		return fmt.Errorf("get totp secret: %w", err)
	}
	if secret == "" {
		return nil
	}
	if strings.TrimSpace(code) == "" {
		return ErrTOTPRequired
	}
	if !validateTOTP(secret, code, f.now()) {
		return ErrInvalidTOTP
	}
	return nil
}

func validateTOTP(secret, code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
