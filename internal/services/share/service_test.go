package share

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

func TestLink(t *testing.T) {
	svc := NewService("https://advent.example/ ", 0)

	link, err := svc.Link(model.Calendar{ShareCode: "abc123xyz"})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link != "https://advent.example/c/abc123xyz" {
		t.Fatalf("unexpected link %q", link)
	}

	if _, err := svc.Link(model.Calendar{}); !errors.Is(err, ErrNoShareCode) {
		t.Fatalf("expected ErrNoShareCode, got %v", err)
	}
}

func TestQRCodeRendersPNG(t *testing.T) {
	svc := NewService("https://advent.example", 128)

	data, err := svc.QRCode(model.Calendar{ShareCode: "abc123xyz"}, 0)
	if err != nil {
		t.Fatalf("qr code: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got := img.Bounds().Dx(); got != 128 {
		t.Fatalf("unexpected width %d", got)
	}

	data, err = svc.QRCode(model.Calendar{ShareCode: "abc123xyz"}, 5000)
	if err != nil {
		t.Fatalf("qr code: %v", err)
	}
	img, err = png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if got := img.Bounds().Dx(); got != maxQRSize {
		t.Fatalf("expected clamped width %d, got %d", maxQRSize, got)
	}
}
