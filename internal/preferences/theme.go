package preferences

import (
	"context"
	"fmt"

	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/storage"
)

// ThemeStore persists the colour scheme preference
type ThemeStore struct {
	slot *storage.Slot[models.Theme]
}

func NewThemeStore(slot *storage.Slot[models.Theme]) *ThemeStore {
	return &ThemeStore{slot: slot}
}

// Theme returns the stored theme, or system when the stored value is unknown
func (s *ThemeStore) Theme(ctx context.Context) models.Theme {
	t := s.slot.Get(ctx)
	if !t.IsValid() {
		return models.ThemeSystem
	}
	return t
}

func (s *ThemeStore) SetTheme(ctx context.Context, t models.Theme) error {
	if !t.IsValid() {
		return fmt.Errorf("invalid theme %q: must be light, dark or system", t)
	}
	s.slot.Set(ctx, t)
	return nil
}

// Toggle switches light to dark and anything else to light
func (s *ThemeStore) Toggle(ctx context.Context) models.Theme {
	return s.slot.Update(ctx, func(t models.Theme) models.Theme {
		if t == models.ThemeLight {
			return models.ThemeDark
		}
		return models.ThemeLight
	})
}
