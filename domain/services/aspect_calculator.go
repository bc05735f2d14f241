// Package services holds the relationship computation pipeline: aspect and
// house math, synastry and composite generation, compatibility scoring,
// dynamics analysis, natal summaries, and the orchestrator that runs a full
// analysis. Everything here is pure computation with no I/O and no shared
// mutable state, so services are safe to share across goroutines.
package services

import (
	"math"

	"astraea-backend/domain/astro"
	"astraea-backend/domain/config"
	"astraea-backend/domain/core/valueobjects"
)

// AspectCalculator finds the aspect, if any, between two ecliptic positions.
type AspectCalculator struct {
	config *config.ScoringConfig
}

// NewAspectCalculator creates an aspect calculator. A nil config falls back
// to the default orb table.
func NewAspectCalculator(cfg *config.ScoringConfig) *AspectCalculator {
	if cfg == nil {
		cfg = config.DefaultScoringConfig()
	}
	return &AspectCalculator{config: cfg}
}

// FindAspect returns the aspect between two longitudes, or nil when the
// separation falls within no aspect's orb; that is a valid, common outcome,
// not an error.
//
// Kinds are checked in ascending angle order (0, 60, 90, 120, 150, 180); the
// first kind whose orb contains the separation wins. Whether an aspect is
// applying or separating cannot be known without planetary speeds, so a
// tight orb (less than half the maximum) stands in as the heuristic.
func (c *AspectCalculator) FindAspect(lon1, lon2 float64) *valueobjects.Aspect {
	separation := astro.AngularSeparation(lon1, lon2)

	for _, kind := range valueobjects.AspectKindsByAngle() {
		maxOrb := c.config.MaxOrb(kind)
		orb := math.Abs(separation - kind.ExactAngle())
		if orb > maxOrb {
			continue
		}

		aspect, err := valueobjects.NewAspect(kind, separation, orb, orb < maxOrb/2)
		if err != nil {
			return nil
		}
		return &aspect
	}

	return nil
}

// FindAspectBetween is FindAspect over two positions.
func (c *AspectCalculator) FindAspectBetween(p1, p2 valueobjects.PlanetPosition) *valueobjects.Aspect {
	return c.FindAspect(p1.Longitude(), p2.Longitude())
}
