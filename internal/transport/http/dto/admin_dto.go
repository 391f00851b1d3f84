package dto

import "time"

type AdminStatsResponse struct {
	Users           int `json:"users"`
	Creators        int `json:"creators"`
	Calendars       int `json:"calendars"`
	PublicCalendars int `json:"public_calendars"`
	Purchases       int `json:"purchases"`
	Tips            int `json:"tips"`
}

type AdminOverviewResponse struct {
	Stats  AdminStatsResponse `json:"stats"`
	Recent []CalendarResponse `json:"recent"`
}

type CreateArtistRequest struct {
	Name            string `json:"name"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profile_image_url"`
	Country         string `json:"country"`
}

type TranslationRequest struct {
	TextContent string  `json:"text_content"`
	AudioURL    *string `json:"audio_url"`
}

type TOTPSetupResponse struct {
	Secret        string    `json:"secret"`
	OTPAuthURL    string    `json:"otpauth_url"`
	QRCodeDataURL string    `json:"qr_code_data_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type TOTPConfirmRequest struct {
	Code string `json:"code"`
}
