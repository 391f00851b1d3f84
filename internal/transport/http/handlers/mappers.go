package handlers

import (
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	calendarsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
)

func mapPrice(p model.Price) dto.PriceDTO {
	return dto.PriceDTO{AmountCents: p.AmountCents, Currency: p.Currency}
}

func mapCalendar(cal model.Calendar) dto.CalendarResponse {
	return dto.CalendarResponse{
		ID:              cal.ID,
		CreatorID:       cal.CreatorID,
		Title:           cal.Title,
		Description:     cal.Description,
		Username:        cal.Username,
		Theme:           string(cal.Theme),
		BackgroundImage: cal.BackgroundImage,
		IsPublic:        cal.IsPublic,
		Price:           mapPrice(cal.Price),
		ShareCode:       cal.ShareCode,
		Season:          cal.Season,
		CreatedAt:       cal.CreatedAt,
		UpdatedAt:       cal.UpdatedAt,
	}
}

func mapCalendars(cals []model.Calendar) []dto.CalendarResponse {
	out := make([]dto.CalendarResponse, 0, len(cals))
	for _, cal := range cals {
		out = append(out, mapCalendar(cal))
	}
	return out
}

func mapDay(day model.CalendarDay) dto.DayResponse {
	return dto.DayResponse{
		DayNumber: day.DayNumber,
		Title:     day.Title,
		Message:   day.Message,
		ImageURL:  day.ImageURL,
		Price:     mapPrice(day.Price),
		UpdatedAt: day.UpdatedAt,
	}
}

func mapSharedView(view calendarsvc.SharedView) dto.SharedCalendarResponse {
	days := make([]dto.SharedDayResponse, 0, len(view.Days))
	for _, slot := range view.Days {
		item := dto.SharedDayResponse{
			DayNumber:          slot.DayNumber,
			State:              string(slot.State),
			TemporallyUnlocked: slot.TemporallyUnlocked,
			CanAccess:          slot.CanAccess,
			Price:              mapPrice(slot.Price),
			UnlockAt:           slot.UnlockAt,
		}
		if slot.Content != nil {
			content := mapDay(*slot.Content)
			item.Content = &content
		}
		days = append(days, item)
	}

	return dto.SharedCalendarResponse{
		Calendar:     mapCalendar(view.Calendar),
		IsOwner:      view.IsOwner,
		NeedsPayment: view.NeedsPayment,
		Days:         days,
	}
}

func mapPurchase(p model.PurchaseRecord) dto.PurchaseResponse {
	return dto.PurchaseResponse{
		ID:            p.ID,
		CalendarID:    p.CalendarID,
		DayNumber:     p.DayNumber,
		Amount:        mapPrice(p.Amount),
		Status:        string(p.Status),
		PaymentMethod: string(p.PaymentMethod),
		CreatedAt:     p.CreatedAt,
	}
}

func mapProfile(p model.Profile, withEmail bool) dto.ProfileResponse {
	out := dto.ProfileResponse{
		ID:        p.ID,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
	if withEmail {
		out.Email = p.Email
	}
	return out
}

// mapScene hides the image of scenes that are still locked.
func mapScene(scene model.Scene, unlocked bool) dto.SceneResponse {
	out := dto.SceneResponse{
		ID:         scene.ID,
		DayNumber:  scene.DayNumber,
		Title:      scene.Title,
		ArtistID:   scene.ArtistID,
		UnlockDate: scene.UnlockDate,
		IsUnlocked: unlocked,
	}
	if unlocked {
		out.ImageURL = scene.ImageURL
	}
	return out
}

func mapArtist(a model.Artist) dto.ArtistResponse {
	return dto.ArtistResponse{
		ID:              a.ID,
		Name:            a.Name,
		Bio:             a.Bio,
		ProfileImageURL: a.ProfileImageURL,
		Country:         a.Country,
	}
}

func mapTranslation(tr model.Translation) dto.TranslationResponse {
	return dto.TranslationResponse{
		Language:    string(tr.Language),
		TextContent: tr.TextContent,
		AudioURL:    tr.AudioURL,
	}
}

func mapTip(t model.Tip) dto.TipResponse {
	return dto.TipResponse{
		ID:         t.ID,
		ArtistID:   t.ArtistID,
		SceneID:    t.SceneID,
		Amount:     mapPrice(t.Amount),
		TipperName: t.TipperName,
		Message:    t.Message,
		CreatedAt:  t.CreatedAt,
	}
}
