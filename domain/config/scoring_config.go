package config

import (
	vo "astraea-backend/domain/core/valueobjects"
)

// Rating is a qualitative band for an overall compatibility score.
type Rating struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ratingBand pairs a minimum score with its rating.
type ratingBand struct {
	min    int
	rating Rating
}

// ScoringConfig holds every numeric table the compatibility pipeline reads.
// Instances are immutable; build them with DefaultScoringConfig and share
// freely across goroutines.
type ScoringConfig struct {
	aspectWeights map[vo.AspectKind]float64
	maxOrbs       map[vo.AspectKind]float64
	planetWeights map[vo.Planet]float64
	angleWeights  map[vo.AnglePoint]float64
	houseWeights  map[int]float64
	ratingBands   []ratingBand

	// Thresholds for flagging standout contacts
	strongAspectOrb  float64
	goodOverlayFloor float64
	badOverlayCeil   float64

	// Blend weights
	synastryAspectShare   float64
	synastryOverlayShare  float64
	compositeAspectShare  float64
	compositeAngularShare float64
	compositeBalanceShare float64
	overallSynastryShare  float64
	overallCompositeShare float64
	overallDynamicsShare  float64
}

// DefaultScoringConfig returns the standard Western synastry weighting model.
func DefaultScoringConfig() *ScoringConfig {
	cfg := &ScoringConfig{
		aspectWeights: map[vo.AspectKind]float64{
			vo.Conjunction: 1.0,
			vo.Trine:       0.8,
			vo.Sextile:     0.6,
			vo.Square:      0.4,
			vo.Opposition:  0.3,
			vo.Quincunx:    0.2,
		},
		maxOrbs: map[vo.AspectKind]float64{},
		planetWeights: map[vo.Planet]float64{
			vo.Sun:     1.0,
			vo.Moon:    0.9,
			vo.Mercury: 0.8,
			vo.Venus:   0.7,
			vo.Mars:    0.6,
			vo.Jupiter: 0.5,
			vo.Saturn:  0.4,
			vo.Uranus:  0.3,
			vo.Neptune: 0.2,
			vo.Pluto:   0.1,
			vo.Rahu:    0.4,
			vo.Ketu:    0.4,
		},
		angleWeights: map[vo.AnglePoint]float64{
			vo.Ascendant:  1.0,
			vo.Midheaven:  0.9,
			vo.Descendant: 0.7,
			vo.ImumCoeli:  0.7,
			vo.Vertex:     0.5,
		},
		houseWeights: map[int]float64{
			1:  1.0,
			2:  0.4,
			3:  0.5,
			4:  0.8,
			5:  0.9,
			6:  0.3,
			7:  1.0,
			8:  0.9,
			9:  0.5,
			10: 0.6,
			11: 0.5,
			12: 0.3,
		},
		ratingBands: []ratingBand{
			{80, Rating{"Exceptional", "A rare alignment with deep natural harmony and staying power."}},
			{70, Rating{"Very Strong", "Strong mutual support with more flow than friction."}},
			{60, Rating{"Strong", "A solid connection where strengths outweigh the rough edges."}},
			{50, Rating{"Moderate", "A workable bond that asks for conscious effort in places."}},
			{40, Rating{"Challenging", "Real friction that rewards patience and clear communication."}},
			{0, Rating{"Very Challenging", "Significant tension that demands sustained work from both sides."}},
		},

		strongAspectOrb:  2.0,
		goodOverlayFloor: 0.7,
		badOverlayCeil:   0.4,

		synastryAspectShare:   0.6,
		synastryOverlayShare:  0.4,
		compositeAspectShare:  0.5,
		compositeAngularShare: 0.3,
		compositeBalanceShare: 0.2,
		overallSynastryShare:  0.4,
		overallCompositeShare: 0.4,
		overallDynamicsShare:  0.2,
	}
	for _, kind := range vo.AspectKindsByAngle() {
		cfg.maxOrbs[kind] = kind.MaxOrb()
	}
	return cfg
}

// AspectWeight returns the influence weight of an aspect kind, 0 if unknown.
func (c *ScoringConfig) AspectWeight(kind vo.AspectKind) float64 {
	return c.aspectWeights[kind]
}

// MaxOrb returns the matching orb for an aspect kind, 0 if unknown.
func (c *ScoringConfig) MaxOrb(kind vo.AspectKind) float64 {
	return c.maxOrbs[kind]
}

// PlanetWeight returns the influence weight of a planet, 0 if unknown.
func (c *ScoringConfig) PlanetWeight(planet vo.Planet) float64 {
	return c.planetWeights[planet]
}

// AngleWeight returns the influence weight of a chart angle, 0 if unknown.
func (c *ScoringConfig) AngleWeight(point vo.AnglePoint) float64 {
	return c.angleWeights[point]
}

// HouseWeight returns the overlay significance of a house, 0 if unknown.
func (c *ScoringConfig) HouseWeight(house int) float64 {
	return c.houseWeights[house]
}

// RatingFor maps an overall 0-100 score to its qualitative band. Bands are
// checked descending; the first threshold at or below the score wins.
func (c *ScoringConfig) RatingFor(score int) Rating {
	for _, band := range c.ratingBands {
		if score >= band.min {
			return band.rating
		}
	}
	return c.ratingBands[len(c.ratingBands)-1].rating
}

// StrongAspectOrb is the orb below which an aspect counts as standout.
func (c *ScoringConfig) StrongAspectOrb() float64 {
	return c.strongAspectOrb
}

// GoodOverlayFloor is the house weight above which an overlay counts as
// notably supportive.
func (c *ScoringConfig) GoodOverlayFloor() float64 {
	return c.goodOverlayFloor
}

// BadOverlayCeil is the house weight below which an overlay counts as
// notably strained.
func (c *ScoringConfig) BadOverlayCeil() float64 {
	return c.badOverlayCeil
}

// SynastryBlend returns the aspect and overlay shares of the synastry score.
func (c *ScoringConfig) SynastryBlend() (aspects, overlays float64) {
	return c.synastryAspectShare, c.synastryOverlayShare
}

// CompositeBlend returns the aspect, angularity and house balance shares of
// the composite score.
func (c *ScoringConfig) CompositeBlend() (aspects, angularity, balance float64) {
	return c.compositeAspectShare, c.compositeAngularShare, c.compositeBalanceShare
}

// OverallBlend returns the synastry, composite and dynamics shares of the
// overall compatibility score.
func (c *ScoringConfig) OverallBlend() (synastry, composite, dynamics float64) {
	return c.overallSynastryShare, c.overallCompositeShare, c.overallDynamicsShare
}
