package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

var ErrNoShareCode = errors.New("calendar has no share code")

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

type Service struct {
	baseURL string
	qrSize  int
}

func NewService(baseURL string, qrSize int) *Service {
	if qrSize <= 0 {
		qrSize = defaultQRSize
	}
	return &Service{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		qrSize:  qrSize,
	}
}

// Link is the public address of the shared calendar page.
func (s *Service) Link(cal model.Calendar) (string, error) {
	if strings.TrimSpace(cal.ShareCode) == "" {
		return "", ErrNoShareCode
	}
	return s.baseURL + "/c/" + url.PathEscape(cal.ShareCode), nil
}

// QRCode renders the share link as a PNG. A size of zero uses the configured
// default; other sizes are clamped.
func (s *Service) QRCode(cal model.Calendar, size int) ([]byte, error) {
	link, err := s.Link(cal)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = s.qrSize
	}
	size = min(max(size, minQRSize), maxQRSize)

	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
