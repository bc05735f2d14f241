package services

import (
	"fmt"
	"math"

	"astraea-backend/domain/config"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
)

// Shared scoring primitives. Synastry, composite, compatibility, and
// dynamics all fold contact lists through the same contribution formula so
// their numbers stay comparable.

// clampScore bounds a raw score to the canonical [0, 100] band.
func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// bodyWeight resolves the scoring weight of a chart point: planets from the
// planet table, angles from the angle table.
func bodyWeight(cfg *config.ScoringConfig, point valueobjects.ChartPoint) float64 {
	if planet, ok := point.Planet(); ok {
		return cfg.PlanetWeight(planet)
	}
	if angle, ok := point.Angle(); ok {
		return cfg.AngleWeight(angle)
	}
	return 0
}

// aspectContribution scores a single contact on a 0-100 scale: the aspect's
// weight times the mean of the two body weights, times 100.
func aspectContribution(cfg *config.ScoringConfig, from, to valueobjects.ChartPoint, aspect valueobjects.Aspect) float64 {
	mean := (bodyWeight(cfg, from) + bodyWeight(cfg, to)) / 2
	return cfg.AspectWeight(aspect.Kind()) * mean * 100
}

// scoreInterAspects folds an inter-chart contact list into [0, 100].
// Frictional contacts offset harmonious ones at half strength.
func scoreInterAspects(cfg *config.ScoringConfig, aspects []aggregates.InterAspect) float64 {
	var positive, negative float64
	for _, contact := range aspects {
		contribution := aspectContribution(cfg, contact.From.Point, contact.To.Point, contact.Aspect)
		if contact.Aspect.Kind().IsHarmonious() {
			positive += contribution
		} else {
			negative += contribution
		}
	}
	return clampScore(positive - 0.5*negative)
}

// scorePointAspects folds a composite chart's internal aspect list the same
// way scoreInterAspects folds inter-chart contacts.
func scorePointAspects(cfg *config.ScoringConfig, aspects []entities.PointAspect) float64 {
	var positive, negative float64
	for _, contact := range aspects {
		contribution := aspectContribution(cfg, contact.Point1, contact.Point2, contact.Aspect)
		if contact.Aspect.Kind().IsHarmonious() {
			positive += contribution
		} else {
			negative += contribution
		}
	}
	return clampScore(positive - 0.5*negative)
}

// scoreHouseOverlays averages overlay contributions (house weight × planet
// weight × 100), capped at 100. An empty list scores 0.
func scoreHouseOverlays(cfg *config.ScoringConfig, overlays []aggregates.HouseOverlay) float64 {
	if len(overlays) == 0 {
		return 0
	}
	var total float64
	for _, overlay := range overlays {
		total += overlay.Significance * cfg.PlanetWeight(overlay.Planet) * 100
	}
	return math.Min(total/float64(len(overlays)), 100)
}

// scoreHouseBalance rewards an even spread of composite planets across the
// twelve houses: 100 minus ten times the variance of per-house counts.
func scoreHouseBalance(chart *entities.CompositeChart, locator *HouseLocator) float64 {
	if chart == nil || chart.PlanetCount() == 0 {
		return 0
	}

	var counts [valueobjects.HouseCount]float64
	cusps := chart.Houses()
	for _, planet := range chart.PlanetsCanonical() {
		pos, ok := chart.Position(planet)
		if !ok {
			continue
		}
		counts[locator.HouseForLongitude(pos.Longitude(), cusps)-1]++
	}

	mean := float64(chart.PlanetCount()) / valueobjects.HouseCount
	var variance float64
	for _, n := range counts {
		deviation := n - mean
		variance += deviation * deviation
	}
	variance /= valueobjects.HouseCount

	return clampScore(100 - 10*variance)
}

// CompatibilityService reduces synastry and composite output to a single
// 0-100 verdict with a rating and rule-based interpretation lists. Every
// scorer is total on empty input, so a sparse analysis yields a low score
// rather than an error.
type CompatibilityService struct {
	config  *config.ScoringConfig
	locator *HouseLocator
}

// NewCompatibilityService creates a compatibility service. A nil config
// falls back to the default weighting model.
func NewCompatibilityService(cfg *config.ScoringConfig) *CompatibilityService {
	if cfg == nil {
		cfg = config.DefaultScoringConfig()
	}
	return &CompatibilityService{
		config:  cfg,
		locator: NewHouseLocator(),
	}
}

// Calculate blends the synastry, composite, and dynamics subscores into the
// overall verdict. A composite result without a chart contributes zero to
// its subscore.
func (s *CompatibilityService) Calculate(synastry aggregates.SynastryResult, composite aggregates.CompositeResult) aggregates.CompatibilityResult {
	synScore := s.synastrySubscore(synastry)
	compScore := s.compositeSubscore(composite.Chart)
	dynScore := s.dynamicsSubscore(synastry)

	synShare, compShare, dynShare := s.config.OverallBlend()
	overall := int(math.Round(clampScore(synShare*synScore + compShare*compScore + dynShare*dynScore)))

	signals := s.countSignals(synastry, composite.Chart)
	strengths := s.buildStrengths(signals)
	challenges := s.buildChallenges(signals)

	return aggregates.CompatibilityResult{
		Overall: overall,
		Breakdown: aggregates.ScoreBreakdown{
			Synastry:  synScore,
			Composite: compScore,
			Dynamics:  dynScore,
		},
		Rating:          s.config.RatingFor(overall),
		Strengths:       strengths,
		Challenges:      challenges,
		Recommendations: s.buildRecommendations(signals, strengths, challenges),
	}
}

// synastrySubscore re-derives the synastry score from its contact lists so
// the verdict does not depend on the caller having populated Score.
func (s *CompatibilityService) synastrySubscore(synastry aggregates.SynastryResult) float64 {
	aspectShare, overlayShare := s.config.SynastryBlend()
	return clampScore(aspectShare*scoreInterAspects(s.config, synastry.InterAspects) +
		overlayShare*scoreHouseOverlays(s.config, synastry.HouseOverlays))
}

// compositeSubscore blends the composite chart's internal aspects, the share
// of planets near the angles, and the house balance.
func (s *CompatibilityService) compositeSubscore(chart *entities.CompositeChart) float64 {
	if chart == nil {
		return 0
	}

	var angularity float64
	if graded := chart.Angularity(); len(graded) > 0 {
		angularity = math.Min(100, float64(chart.AngularCount())/float64(len(graded))*100)
	}

	aspectShare, angularShare, balanceShare := s.config.CompositeBlend()
	return clampScore(aspectShare*scorePointAspects(s.config, chart.Aspects()) +
		angularShare*angularity +
		balanceShare*scoreHouseBalance(chart, s.locator))
}

// dynamicsSubscore estimates day-to-day interaction quality from
// complementary and conflicting signal counts. The base of 50 keeps an
// empty synastry neutral.
func (s *CompatibilityService) dynamicsSubscore(synastry aggregates.SynastryResult) float64 {
	complementary := 50.0
	var conflict float64

	for _, contact := range synastry.InterAspects {
		switch contact.Aspect.Kind() {
		case valueobjects.Trine, valueobjects.Sextile:
			complementary += 5
		case valueobjects.Square, valueobjects.Opposition, valueobjects.Quincunx:
			conflict += 8
		}
	}
	for _, overlay := range synastry.HouseOverlays {
		switch {
		case overlay.Significance > s.config.GoodOverlayFloor():
			complementary += 3
		case overlay.Significance < s.config.BadOverlayCeil():
			conflict += 5
		}
	}

	return clampScore(complementary - conflict)
}

// interpretationSignals are the deterministic inputs the strength, challenge,
// and recommendation rules key off.
type interpretationSignals struct {
	strongHarmonious  int
	strongChallenging int
	goodOverlays      int
	badOverlays       int
	houseBalance      float64
	angular           int
}

func (s *CompatibilityService) countSignals(synastry aggregates.SynastryResult, chart *entities.CompositeChart) interpretationSignals {
	signals := interpretationSignals{}

	for _, contact := range synastry.InterAspects {
		if contact.Aspect.Orb() >= s.config.StrongAspectOrb() {
			continue
		}
		if contact.Aspect.Kind().IsHarmonious() {
			signals.strongHarmonious++
		} else {
			signals.strongChallenging++
		}
	}

	for _, overlay := range synastry.HouseOverlays {
		switch {
		case overlay.Significance > s.config.GoodOverlayFloor():
			signals.goodOverlays++
		case overlay.Significance < s.config.BadOverlayCeil():
			signals.badOverlays++
		}
	}

	if chart != nil {
		signals.houseBalance = scoreHouseBalance(chart, s.locator)
		signals.angular = chart.AngularCount()
	}

	return signals
}

func (s *CompatibilityService) buildStrengths(signals interpretationSignals) []string {
	strengths := []string{}
	if signals.strongHarmonious >= 3 {
		strengths = append(strengths, fmt.Sprintf("%d tight harmonious contacts give the relationship natural ease", signals.strongHarmonious))
	}
	if signals.goodOverlays >= 4 {
		strengths = append(strengths, "Planets land in each other's most prominent houses, keeping both people engaged")
	}
	if signals.houseBalance >= 70 {
		strengths = append(strengths, "Composite energy spreads evenly across life areas")
	}
	if signals.angular >= 3 {
		strengths = append(strengths, "Several composite planets sit close to the angles, giving the partnership clear direction")
	}
	return strengths
}

func (s *CompatibilityService) buildChallenges(signals interpretationSignals) []string {
	challenges := []string{}
	if signals.strongChallenging >= 3 {
		challenges = append(challenges, fmt.Sprintf("%d tight frictional contacts call for active negotiation", signals.strongChallenging))
	}
	if signals.badOverlays >= 3 {
		challenges = append(challenges, "Several planets fall in each other's quieter houses, so shared priorities need deliberate attention")
	}
	// A zero balance means no composite chart was available, not clustering.
	if signals.houseBalance > 0 && signals.houseBalance < 40 {
		challenges = append(challenges, "Composite planets cluster in a few houses, narrowing the relationship's focus")
	}
	return challenges
}

func (s *CompatibilityService) buildRecommendations(signals interpretationSignals, strengths, challenges []string) []string {
	recommendations := []string{}
	if len(strengths) > 0 && len(challenges) > 0 {
		recommendations = append(recommendations, "Lean on the relationship's natural strengths when working through its friction points")
	}
	if signals.strongChallenging > signals.strongHarmonious {
		recommendations = append(recommendations, "Schedule regular check-ins; friction this sharp responds well to routine")
	}
	if signals.goodOverlays == 0 {
		recommendations = append(recommendations, "Build shared rituals to make up for the lack of natural house emphasis")
	}
	if signals.houseBalance >= 70 && signals.strongHarmonious >= 1 {
		recommendations = append(recommendations, "Keep investing across many life areas rather than doubling down on one")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Give the connection time; its signature develops slowly")
	}
	return recommendations
}
