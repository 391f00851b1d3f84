package scenes

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
)

type fakeStore struct {
	scenes       map[int]model.Scene
	artists      map[uuid.UUID]model.Artist
	translations map[uuid.UUID][]model.Translation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		scenes:       map[int]model.Scene{},
		artists:      map[uuid.UUID]model.Artist{},
		translations: map[uuid.UUID][]model.Translation{},
	}
}

func (f *fakeStore) ListScenes(context.Context) ([]model.Scene, error) {
	out := []model.Scene{}
	for n := model.FirstDay; n <= model.LastDay; n++ {
		if scene, ok := f.scenes[n]; ok {
			out = append(out, scene)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSceneByDay(_ context.Context, n int) (model.Scene, error) {
	scene, ok := f.scenes[n]
	if !ok {
		return model.Scene{}, ErrNotFound
	}
	return scene, nil
}

func (f *fakeStore) CreateScene(_ context.Context, scene model.Scene) (model.Scene, error) {
	if _, ok := f.scenes[scene.DayNumber]; ok {
		return model.Scene{}, ErrDayTaken
	}
	f.scenes[scene.DayNumber] = scene
	return scene, nil
}

func (f *fakeStore) MarkSceneUnlocked(_ context.Context, n int) (model.Scene, error) {
	scene := f.scenes[n]
	scene.IsUnlocked = true
	f.scenes[n] = scene
	return scene, nil
}

func (f *fakeStore) ListScenesByArtist(_ context.Context, artistID uuid.UUID) ([]model.Scene, error) {
	out := []model.Scene{}
	for _, scene := range f.scenes {
		if scene.ArtistID != nil && *scene.ArtistID == artistID {
			out = append(out, scene)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTranslations(_ context.Context, sceneID uuid.UUID) ([]model.Translation, error) {
	return f.translations[sceneID], nil
}

func (f *fakeStore) UpsertTranslation(_ context.Context, tr model.Translation) (model.Translation, error) {
	f.translations[tr.SceneID] = append(f.translations[tr.SceneID], tr)
	return tr, nil
}

func (f *fakeStore) GetArtist(_ context.Context, id uuid.UUID) (model.Artist, error) {
	artist, ok := f.artists[id]
	if !ok {
		return model.Artist{}, ErrArtistNotFound
	}
	return artist, nil
}

func (f *fakeStore) CreateArtist(_ context.Context, artist model.Artist) (model.Artist, error) {
	f.artists[artist.ID] = artist
	return artist, nil
}

type fakeTips struct {
	tips []model.Tip
}

func (f *fakeTips) ListForArtist(_ context.Context, artistID uuid.UUID) ([]model.Tip, error) {
	out := []model.Tip{}
	for _, tip := range f.tips {
		if tip.ArtistID == artistID {
			out = append(out, tip)
		}
	}
	return out, nil
}

type fakeMedia struct {
	released []string
}

func (f *fakeMedia) Upload(_ context.Context, owner uuid.UUID, kind enums.MediaKind, _ mediasvc.Upload) (model.Media, error) {
	return model.Media{OwnerID: owner, Kind: kind, URL: "http://cdn/scene.png"}, nil
}

func (f *fakeMedia) Release(_ context.Context, urls ...string) error {
	f.released = append(f.released, urls...)
	return nil
}

func newScene(day int, season int, unlocked bool) model.Scene {
	return model.Scene{
		ID:         uuid.New(),
		DayNumber:  day,
		Title:      "Scene",
		UnlockDate: rules.UnlockDate(day, season, time.UTC),
		IsUnlocked: unlocked,
	}
}

func newTestService(store *fakeStore, now time.Time) *Service {
	svc := NewService(store, &fakeTips{}, &fakeMedia{}, rules.UnlockPolicy{YearBounded: true})
	svc.now = func() time.Time { return now }
	return svc
}

func TestListCombinesFlagAndDate(t *testing.T) {
	store := newFakeStore()
	store.scenes[3] = newScene(3, 2025, false)
	store.scenes[20] = newScene(20, 2025, true)
	store.scenes[21] = newScene(21, 2025, false)

	svc := newTestService(store, time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC))
	slots, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []bool{true, true, false}
	for i, slot := range slots {
		if slot.Unlocked != want[i] {
			t.Fatalf("day %d: got unlocked=%v want %v", slot.Scene.DayNumber, slot.Unlocked, want[i])
		}
	}
}

func TestDetailRejectsLockedScene(t *testing.T) {
	store := newFakeStore()
	store.scenes[10] = newScene(10, 2025, false)

	svc := newTestService(store, time.Date(2025, time.December, 9, 23, 0, 0, 0, time.UTC))
	if _, err := svc.Detail(context.Background(), 10, "en"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestDetailPicksTranslationAndArtist(t *testing.T) {
	store := newFakeStore()
	artist := model.Artist{ID: uuid.New(), Name: "Yuki"}
	store.artists[artist.ID] = artist
	scene := newScene(1, 2025, true)
	scene.ArtistID = &artist.ID
	store.scenes[1] = scene
	store.translations[scene.ID] = []model.Translation{
		{SceneID: scene.ID, Language: enums.LanguageJapanese, TextContent: "こんにちは"},
		{SceneID: scene.ID, Language: enums.LanguageEnglish, TextContent: "hello"},
		{SceneID: scene.ID, Language: enums.LanguageUkrainian, TextContent: "привіт"},
	}

	svc := newTestService(store, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC))
	detail, err := svc.Detail(context.Background(), 1, "uk-UA,uk;q=0.9,en;q=0.5")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Artist == nil || detail.Artist.Name != "Yuki" {
		t.Fatalf("expected artist, got %+v", detail.Artist)
	}
	if detail.Translation == nil || detail.Translation.Language != enums.LanguageUkrainian {
		t.Fatalf("expected ukrainian translation, got %+v", detail.Translation)
	}
	if len(detail.Translations) != 3 {
		t.Fatalf("expected all translations, got %d", len(detail.Translations))
	}
}

func TestPickTranslationFallsBackToEnglish(t *testing.T) {
	translations := []model.Translation{
		{Language: enums.LanguageJapanese, TextContent: "ja"},
		{Language: enums.LanguageEnglish, TextContent: "en"},
	}

	for _, header := range []string{"", "de-DE", "not a header;;"} {
		got := PickTranslation(translations, header)
		if got == nil || got.Language != enums.LanguageEnglish {
			t.Fatalf("header %q: expected english fallback, got %+v", header, got)
		}
	}
	if got := PickTranslation(translations, "ja-JP"); got == nil || got.Language != enums.LanguageJapanese {
		t.Fatalf("expected japanese, got %+v", got)
	}
	if PickTranslation(nil, "en") != nil {
		t.Fatalf("expected nil for no translations")
	}
}

func TestUnlockRequiresDate(t *testing.T) {
	store := newFakeStore()
	store.scenes[15] = newScene(15, 2025, false)

	early := newTestService(store, time.Date(2025, time.December, 14, 0, 0, 0, 0, time.UTC))
	if _, err := early.Unlock(context.Background(), nil, 15); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	onTime := newTestService(store, time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC))
	scene, err := onTime.Unlock(context.Background(), nil, 15)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !scene.IsUnlocked || !store.scenes[15].IsUnlocked {
		t.Fatalf("scene flag not persisted")
	}
}

func TestCreateScene(t *testing.T) {
	store := newFakeStore()
	media := &fakeMedia{}
	svc := NewService(store, &fakeTips{}, media, rules.UnlockPolicy{})
	svc.now = func() time.Time { return time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC) }
	image := mediasvc.Upload{ContentType: "image/png", Body: bytes.NewReader([]byte("x")), Size: 1}

	scene, err := svc.Create(context.Background(), uuid.New(), CreateInput{DayNumber: 4, Title: " Lanterns ", Image: image})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if scene.Title != "Lanterns" || !scene.UnlockDate.Equal(time.Date(2025, time.December, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected scene: %+v", scene)
	}

	if _, err := svc.Create(context.Background(), uuid.New(), CreateInput{DayNumber: 4, Title: "Again", Image: image}); !errors.Is(err, ErrDayTaken) {
		t.Fatalf("expected ErrDayTaken, got %v", err)
	}
	if len(media.released) != 1 {
		t.Fatalf("expected orphaned upload to be released, got %v", media.released)
	}

	if _, err := svc.Create(context.Background(), uuid.New(), CreateInput{DayNumber: 5, Title: "   ", Image: image}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	missing := uuid.New()
	if _, err := svc.Create(context.Background(), uuid.New(), CreateInput{DayNumber: 6, Title: "x", ArtistID: &missing, Image: image}); !errors.Is(err, ErrArtistNotFound) {
		t.Fatalf("expected ErrArtistNotFound, got %v", err)
	}
}

func TestArtistProfileTotals(t *testing.T) {
	store := newFakeStore()
	artist := model.Artist{ID: uuid.New(), Name: "Mira"}
	store.artists[artist.ID] = artist
	scene := newScene(2, 2025, false)
	scene.ArtistID = &artist.ID
	store.scenes[2] = scene

	tips := &fakeTips{tips: []model.Tip{
		{ArtistID: artist.ID, Amount: model.NewPrice(500, "USD")},
		{ArtistID: artist.ID, Amount: model.NewPrice(250, "EUR")},
		{ArtistID: artist.ID, Amount: model.NewPrice(1000, "usd")},
		{ArtistID: uuid.New(), Amount: model.NewPrice(9999, "USD")},
	}}
	svc := NewService(store, tips, &fakeMedia{}, rules.UnlockPolicy{})

	profile, err := svc.Artist(context.Background(), artist.ID)
	if err != nil {
		t.Fatalf("artist: %v", err)
	}
	if len(profile.Scenes) != 1 || len(profile.Tips) != 3 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(profile.Totals) != 2 || profile.Totals[0] != model.NewPrice(1500, "USD") || profile.Totals[1] != model.NewPrice(250, "EUR") {
		t.Fatalf("unexpected totals: %+v", profile.Totals)
	}
}

func TestSetTranslationValidatesLanguage(t *testing.T) {
	store := newFakeStore()
	store.scenes[1] = newScene(1, 2025, true)
	svc := NewService(store, &fakeTips{}, &fakeMedia{}, rules.UnlockPolicy{})

	if _, err := svc.SetTranslation(context.Background(), 1, "fr", "bonjour", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	blank := "  "
	tr, err := svc.SetTranslation(context.Background(), 1, enums.LanguageJapanese, "やあ", &blank)
	if err != nil {
		t.Fatalf("set translation: %v", err)
	}
	if tr.AudioURL != nil {
		t.Fatalf("blank audio url should be dropped")
	}
}
