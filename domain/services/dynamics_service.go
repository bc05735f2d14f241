package services

import (
	"fmt"

	"astraea-backend/domain/config"
	"astraea-backend/domain/core/aggregates"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
)

// dimensionBands holds the qualitative text for one dimension, keyed by the
// fixed 70/45 score thresholds.
type dimensionBands struct {
	high string
	mid  string
	low  string
}

func (b dimensionBands) describe(score float64) string {
	switch {
	case score >= 70:
		return b.high
	case score >= 45:
		return b.mid
	default:
		return b.low
	}
}

var (
	communicationBands = dimensionBands{
		high: "Ideas move easily between you; conversation is a reliable bridge",
		mid:  "Communication works with attention, though styles differ",
		low:  "Misunderstandings come quickly; explicit communication is essential",
	}
	emotionalBands = dimensionBands{
		high: "Feelings are read and returned with unusual accuracy",
		mid:  "Emotional understanding is present but asks for patience",
		low:  "Emotional wavelengths differ; closeness takes conscious building",
	}
	intimacyBands = dimensionBands{
		high: "Attraction and closeness reinforce each other strongly",
		mid:  "Physical and emotional intimacy develop at a steady pace",
		low:  "Intimacy needs deliberate cultivation to deepen",
	}
	conflictBands = dimensionBands{
		high: "Disagreements tend to resolve without lasting damage",
		mid:  "Conflict is manageable when both sides slow down",
		low:  "Arguments escalate easily; agreed ground rules help",
	}
	growthBands = dimensionBands{
		high: "The relationship pushes both people toward their larger selves",
		mid:  "Growth happens in seasons rather than continuously",
		low:  "Comfort can shade into stagnation without outside stimulus",
	}
	stabilityBands = dimensionBands{
		high: "The foundation holds under pressure",
		mid:  "Stability builds gradually with consistent effort",
		low:  "The relationship needs external structure to feel secure",
	}
)

// relationshipStyles maps the top-scoring dimension to an overall style.
var relationshipStyles = map[string]string{
	"Communication":        "Intellectual partnership built on exchange",
	"Emotional Connection": "Deeply bonded emotional partnership",
	"Intimacy":             "Passionate, physically anchored partnership",
	"Conflict Resolution":  "Diplomatic partnership that weathers storms",
	"Growth Potential":     "Growth-oriented partnership of mutual challenge",
	"Stability":            "Grounded partnership built to last",
}

// DynamicsService scores six relationship dimensions from synastry and
// composite output, each with supporting evidence, and rolls them up into
// an overall read.
type DynamicsService struct {
	config  *config.ScoringConfig
	locator *HouseLocator
}

// NewDynamicsService creates a dynamics service. A nil config falls back to
// the default weighting model.
func NewDynamicsService(cfg *config.ScoringConfig) *DynamicsService {
	if cfg == nil {
		cfg = config.DefaultScoringConfig()
	}
	return &DynamicsService{
		config:  cfg,
		locator: NewHouseLocator(),
	}
}

// Analyze scores all six dimensions, the evolution read, and the roll-up.
// Every dimension clamps to [0, 100]; a composite result without a chart
// simply contributes no composite evidence.
func (s *DynamicsService) Analyze(
	synastry aggregates.SynastryResult,
	composite aggregates.CompositeResult,
	compatibility aggregates.CompatibilityResult,
) aggregates.DynamicsResult {
	chart := composite.Chart

	result := aggregates.DynamicsResult{
		Communication:      s.communication(synastry, chart),
		Emotional:          s.emotional(synastry, chart),
		Intimacy:           s.intimacy(synastry, chart),
		ConflictResolution: s.conflictResolution(synastry, chart),
		Growth:             s.growth(synastry, chart),
		Stability:          s.stability(synastry, chart),
		Evolution:          s.evolution(synastry),
	}
	result.Overall = s.rollUp(result, compatibility)

	return result
}

// communication: base 50, +10 per Mercury inter-aspect, +5 per house-3
// overlay, +3 per composite Mercury aspect.
func (s *DynamicsService) communication(synastry aggregates.SynastryResult, chart *entities.CompositeChart) aggregates.DimensionScore {
	score := 50.0
	evidence := []string{}

	for _, contact := range synastry.InterAspects {
		if interAspectInvolves(contact, valueobjects.Mercury) {
			score += 10
			evidence = append(evidence, describeInterAspect(contact))
		}
	}
	for _, overlay := range synastry.HouseOverlays {
		if overlay.House == 3 {
			score += 5
			evidence = append(evidence, describeOverlay(overlay))
		}
	}
	if chart != nil {
		for _, contact := range chart.Aspects() {
			if pointAspectInvolves(contact, valueobjects.Mercury) {
				score += 3
				evidence = append(evidence, describeCompositeAspect(contact))
			}
		}
	}

	return newDimensionScore(score, communicationBands, evidence)
}

// emotional: base 50, +12 per Moon inter-aspect, +8 per house-4 overlay,
// +4 per composite Moon aspect.
func (s *DynamicsService) emotional(synastry aggregates.SynastryResult, chart *entities.CompositeChart) aggregates.DimensionScore {
	score := 50.0
	evidence := []string{}

	for _, contact := range synastry.InterAspects {
		if interAspectInvolves(contact, valueobjects.Moon) {
			score += 12
			evidence = append(evidence, describeInterAspect(contact))
		}
	}
	for _, overlay := range synastry.HouseOverlays {
		if overlay.House == 4 {
			score += 8
			evidence = append(evidence, describeOverlay(overlay))
		}
	}
	if chart != nil {
		for _, contact := range chart.Aspects() {
			if pointAspectInvolves(contact, valueobjects.Moon) {
				score += 4
				evidence = append(evidence, describeCompositeAspect(contact))
			}
		}
	}

	return newDimensionScore(score, emotionalBands, evidence)
}

// intimacy: base 50, +15 per Venus-Mars inter-aspect, +10 per house-5/8 or
// Pluto overlay, +5 per composite Venus or Mars aspect.
func (s *DynamicsService) intimacy(synastry aggregates.SynastryResult, chart *entities.CompositeChart) aggregates.DimensionScore {
	score := 50.0
	evidence := []string{}

	for _, contact := range synastry.InterAspects {
		if isVenusMarsContact(contact) {
			score += 15
			evidence = append(evidence, describeInterAspect(contact))
		}
	}
	for _, overlay := range synastry.HouseOverlays {
		if overlay.House == 5 || overlay.House == 8 || overlay.Planet == valueobjects.Pluto {
			score += 10
			evidence = append(evidence, describeOverlay(overlay))
		}
	}
	if chart != nil {
		for _, contact := range chart.Aspects() {
			if pointAspectInvolves(contact, valueobjects.Venus, valueobjects.Mars) {
				score += 5
				evidence = append(evidence, describeCompositeAspect(contact))
			}
		}
	}

	return newDimensionScore(score, intimacyBands, evidence)
}

// conflictResolution: base 70, +5 per harmonious Saturn inter-aspect, -8 per
// challenging inter-aspect beyond the third, -3 per challenging composite
// aspect.
func (s *DynamicsService) conflictResolution(synastry aggregates.SynastryResult, chart *entities.CompositeChart) aggregates.DimensionScore {
	score := 70.0
	evidence := []string{}

	var challenging int
	for _, contact := range synastry.InterAspects {
		if contact.Aspect.Kind().IsChallenging() {
			challenging++
			continue
		}
		if interAspectInvolves(contact, valueobjects.Saturn) {
			score += 5
			evidence = append(evidence, describeInterAspect(contact))
		}
	}
	if excess := challenging - 3; excess > 0 {
		score -= 8 * float64(excess)
		evidence = append(evidence, fmt.Sprintf("%d frictional contacts beyond the third", excess))
	}

	if chart != nil {
		var hard int
		for _, contact := range chart.Aspects() {
			if contact.Aspect.Kind().IsChallenging() {
				hard++
			}
		}
		if hard > 0 {
			score -= 3 * float64(hard)
			evidence = append(evidence, fmt.Sprintf("%d challenging composite aspects", hard))
		}
	}

	return newDimensionScore(score, conflictBands, evidence)
}

// growth: base 50, +10 per Jupiter inter-aspect, +4 per Uranus inter-aspect,
// +8 per house-9 overlay, +3 per composite Jupiter aspect.
func (s *DynamicsService) growth(synastry aggregates.SynastryResult, chart *entities.CompositeChart) aggregates.DimensionScore {
	score := 50.0
	evidence := []string{}

	for _, contact := range synastry.InterAspects {
		// A Jupiter-Uranus contact earns both bonuses.
		if interAspectInvolves(contact, valueobjects.Jupiter) {
			score += 10
			evidence = append(evidence, describeInterAspect(contact))
		}
		if interAspectInvolves(contact, valueobjects.Uranus) {
			score += 4
			evidence = append(evidence, describeInterAspect(contact))
		}
	}
	for _, overlay := range synastry.HouseOverlays {
		if overlay.House == 9 {
			score += 8
			evidence = append(evidence, describeOverlay(overlay))
		}
	}
	if chart != nil {
		for _, contact := range chart.Aspects() {
			if pointAspectInvolves(contact, valueobjects.Jupiter) {
				score += 3
				evidence = append(evidence, describeCompositeAspect(contact))
			}
		}
	}

	return newDimensionScore(score, growthBands, evidence)
}

// stability: base 50, +8 per Saturn inter-aspect, +0.4 times the composite
// house balance, +2 per composite planet in an earth sign.
func (s *DynamicsService) stability(synastry aggregates.SynastryResult, chart *entities.CompositeChart) aggregates.DimensionScore {
	score := 50.0
	evidence := []string{}

	for _, contact := range synastry.InterAspects {
		if interAspectInvolves(contact, valueobjects.Saturn) {
			score += 8
			evidence = append(evidence, describeInterAspect(contact))
		}
	}

	if chart != nil {
		balance := scoreHouseBalance(chart, s.locator)
		score += 0.4 * balance
		evidence = append(evidence, fmt.Sprintf("composite house balance %.0f", balance))

		for _, planet := range chart.PlanetsCanonical() {
			pos, ok := chart.Position(planet)
			if !ok {
				continue
			}
			if pos.Sign().Element() == valueobjects.Earth {
				score += 2
				evidence = append(evidence, fmt.Sprintf("composite %s in %s", planet.DisplayName(), pos.Sign()))
			}
		}
	}

	return newDimensionScore(score, stabilityBands, evidence)
}

// evolution flags transformative potential from Uranus/Pluto involvement in
// the inter-aspects. Intensity scales with the contact count.
func (s *DynamicsService) evolution(synastry aggregates.SynastryResult) aggregates.RelationshipEvolution {
	var count int
	for _, contact := range synastry.InterAspects {
		if interAspectInvolves(contact, valueobjects.Uranus, valueobjects.Pluto) {
			count++
		}
	}

	switch {
	case count == 0:
		return aggregates.RelationshipEvolution{Transformative: false, Intensity: aggregates.IntensityLow}
	case count <= 2:
		return aggregates.RelationshipEvolution{Transformative: true, Intensity: aggregates.IntensityModerate}
	case count <= 4:
		return aggregates.RelationshipEvolution{Transformative: true, Intensity: aggregates.IntensityHigh}
	default:
		return aggregates.RelationshipEvolution{Transformative: true, Intensity: aggregates.IntensityVeryHigh}
	}
}

// rollUp averages the six dimensions and derives the qualitative labels:
// dimensions at 70 or above are dominant strengths, at 40 or below key
// challenges, the style follows the top scorer, and the outlook follows the
// average tempered by the overall verdict.
func (s *DynamicsService) rollUp(result aggregates.DynamicsResult, compatibility aggregates.CompatibilityResult) aggregates.DynamicsOverall {
	dimensions := result.Dimensions()

	var sum float64
	for _, dimension := range dimensions {
		sum += dimension.Score.Score
	}
	average := sum / float64(len(dimensions))

	overall := aggregates.DynamicsOverall{
		AverageScore:      average,
		DominantStrengths: []string{},
		KeyChallenges:     []string{},
	}

	top := dimensions[0]
	for _, dimension := range dimensions {
		if dimension.Score.Score >= 70 {
			overall.DominantStrengths = append(overall.DominantStrengths, dimension.Name)
		}
		if dimension.Score.Score <= 40 {
			overall.KeyChallenges = append(overall.KeyChallenges, dimension.Name)
		}
		if dimension.Score.Score > top.Score.Score {
			top = dimension
		}
	}

	overall.RelationshipStyle = relationshipStyles[top.Name]

	switch {
	case average >= 70 && compatibility.Overall >= 70:
		overall.LongTermOutlook = "Excellent long-term prospects"
	case average >= 55:
		overall.LongTermOutlook = "Good long-term prospects with steady effort"
	case average >= 40:
		overall.LongTermOutlook = "Workable with sustained commitment"
	default:
		overall.LongTermOutlook = "Challenging without significant mutual adaptation"
	}

	return overall
}

func newDimensionScore(score float64, bands dimensionBands, evidence []string) aggregates.DimensionScore {
	clamped := clampScore(score)
	return aggregates.DimensionScore{
		Score:       clamped,
		Description: bands.describe(clamped),
		Evidence:    evidence,
	}
}

// pointIs reports whether a chart point is the given planet.
func pointIs(point valueobjects.ChartPoint, planet valueobjects.Planet) bool {
	p, ok := point.Planet()
	return ok && p == planet
}

// interAspectInvolves reports whether either side of a contact is one of the
// given planets.
func interAspectInvolves(contact aggregates.InterAspect, planets ...valueobjects.Planet) bool {
	for _, planet := range planets {
		if pointIs(contact.From.Point, planet) || pointIs(contact.To.Point, planet) {
			return true
		}
	}
	return false
}

// pointAspectInvolves is interAspectInvolves for composite internal aspects.
func pointAspectInvolves(contact entities.PointAspect, planets ...valueobjects.Planet) bool {
	for _, planet := range planets {
		if pointIs(contact.Point1, planet) || pointIs(contact.Point2, planet) {
			return true
		}
	}
	return false
}

// isVenusMarsContact reports whether a contact pairs Venus with Mars in
// either direction.
func isVenusMarsContact(contact aggregates.InterAspect) bool {
	return (pointIs(contact.From.Point, valueobjects.Venus) && pointIs(contact.To.Point, valueobjects.Mars)) ||
		(pointIs(contact.From.Point, valueobjects.Mars) && pointIs(contact.To.Point, valueobjects.Venus))
}

func describeInterAspect(contact aggregates.InterAspect) string {
	return fmt.Sprintf("%s %s %s", contact.From.Point.DisplayName(), contact.Aspect.Kind(), contact.To.Point.DisplayName())
}

func describeOverlay(overlay aggregates.HouseOverlay) string {
	return fmt.Sprintf("%s in house %d", overlay.Planet.DisplayName(), overlay.House)
}

func describeCompositeAspect(contact entities.PointAspect) string {
	return fmt.Sprintf("composite %s %s %s", contact.Point1.DisplayName(), contact.Aspect.Kind(), contact.Point2.DisplayName())
}
