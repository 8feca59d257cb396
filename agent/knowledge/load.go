package knowledge

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Load builds a Base from src. Load failures are logged and the affected
// catalogs stay empty; this never fails the caller.
func Load(ctx context.Context, src Source) *Base {
	catalogs, err := src.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("knowledge: some catalogs failed to load, serving empty ones")
	}

	base := NewBase(catalogs)
	faq, tech, billing := base.Sizes()
	log.Info().
		Int("faq", faq).
		Int("tech", tech).
		Int("billing", billing).
		Msg("knowledge: catalogs loaded")
	return base
}
