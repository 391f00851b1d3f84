package tips

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/services/rate"
)

type fakeStore struct {
	artists map[uuid.UUID]bool
	tips    []model.Tip
}

func (f *fakeStore) InsertTip(_ context.Context, tip model.Tip) (model.Tip, error) {
	if !f.artists[tip.ArtistID] {
		return model.Tip{}, ErrArtistNotFound
	}
	f.tips = append(f.tips, tip)
	return tip, nil
}

func (f *fakeStore) ListTipsByArtist(_ context.Context, artistID uuid.UUID) ([]model.Tip, error) {
	out := []model.Tip{}
	for _, tip := range f.tips {
		if tip.ArtistID == artistID {
			out = append(out, tip)
		}
	}
	return out, nil
}

type fakeObserver struct {
	currencies []string
}

func (f *fakeObserver) ObserveTip(currency string) {
	f.currencies = append(f.currencies, currency)
}

type recordingLimiter struct {
	subjects []string
	err      error
}

func (l *recordingLimiter) Check(_ context.Context, subject string) error {
	l.subjects = append(l.subjects, subject)
	return l.err
}

func TestSendRejectsNonPositiveAmount(t *testing.T) {
	artist := uuid.New()
	store := &fakeStore{artists: map[uuid.UUID]bool{artist: true}}
	svc := NewService(store, Config{})

	for _, amount := range []int64{0, -10} {
		if _, err := svc.Send(context.Background(), SendInput{ArtistID: artist, AmountCents: amount}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if len(store.tips) != 0 {
		t.Fatalf("rejected tips must not be written")
	}
}

func TestSendNormalizesInput(t *testing.T) {
	artist := uuid.New()
	store := &fakeStore{artists: map[uuid.UUID]bool{artist: true}}
	observer := &fakeObserver{}
	svc := NewService(store, Config{DefaultCurrency: "usd", MaxAmountCents: 10000})
	svc.AttachObserver(observer)

	tip, err := svc.Send(context.Background(), SendInput{ArtistID: artist, AmountCents: 1000, TipperName: "  ", Message: " thanks! "})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if tip.Amount != model.NewPrice(1000, "USD") {
		t.Fatalf("unexpected amount: %+v", tip.Amount)
	}
	if tip.TipperName != nil {
		t.Fatalf("blank tipper name should be stored as null")
	}
	if tip.Message == nil || *tip.Message != "thanks!" {
		t.Fatalf("message should be trimmed, got %v", tip.Message)
	}
	if len(observer.currencies) != 1 || observer.currencies[0] != "USD" {
		t.Fatalf("unexpected observations: %v", observer.currencies)
	}

	if _, err := svc.Send(context.Background(), SendInput{ArtistID: artist, AmountCents: 10001}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected cap to apply, got %v", err)
	}
}

func TestSendUnknownArtist(t *testing.T) {
	svc := NewService(&fakeStore{artists: map[uuid.UUID]bool{}}, Config{})
	if _, err := svc.Send(context.Background(), SendInput{ArtistID: uuid.New(), AmountCents: 500}); !errors.Is(err, ErrArtistNotFound) {
		t.Fatalf("expected ErrArtistNotFound, got %v", err)
	}
}

func TestSendIsRateLimitedByClientKey(t *testing.T) {
	artist := uuid.New()
	store := &fakeStore{artists: map[uuid.UUID]bool{artist: true}}
	limiter := &recordingLimiter{}
	svc := NewService(store, Config{})
	svc.AttachRateLimiter(limiter)

	if _, err := svc.Send(context.Background(), SendInput{ArtistID: artist, AmountCents: 500, ClientKey: "10.0.0.1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	limiter.err = rate.TooFastError{Scope: "tip", RetryAfterSec: 3}
	_, err := svc.Send(context.Background(), SendInput{ArtistID: artist, AmountCents: 500})
	if _, ok := rate.IsTooFast(err); !ok {
		t.Fatalf("expected TooFastError, got %v", err)
	}
	if len(store.tips) != 1 {
		t.Fatalf("limited tip must not be written")
	}
	if limiter.subjects[0] != "10.0.0.1" || limiter.subjects[1] != "anonymous" {
		t.Fatalf("unexpected limiter subjects: %v", limiter.subjects)
	}
}

func TestListForArtist(t *testing.T) {
	artist := uuid.New()
	store := &fakeStore{artists: map[uuid.UUID]bool{artist: true}}
	svc := NewService(store, Config{PresetAmounts: []int64{500, 1000}})

	if _, err := svc.Send(context.Background(), SendInput{ArtistID: artist, AmountCents: 500}); err != nil {
		t.Fatalf("send: %v", err)
	}
	tips, err := svc.ListForArtist(context.Background(), artist)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tips) != 1 {
		t.Fatalf("expected one tip, got %d", len(tips))
	}

	presets := svc.Presets()
	presets[0] = 1
	if svc.Presets()[0] != 500 {
		t.Fatalf("presets must be copied")
	}
}
