package aggregates

import (
	"astraea-backend/domain/config"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
)

// PointRef identifies a chart point together with the person (1 or 2) whose
// chart it came from.
type PointRef struct {
	Person int                     `json:"person"`
	Point  valueobjects.ChartPoint `json:"point"`
}

// InterAspect is one cross-chart aspect. Both directions of a
// planet→partner-angle contact are recorded separately; From always belongs
// to person 1 and To to person 2 only for planet×planet pairs, angle contacts
// carry the owning person explicitly in each PointRef.
type InterAspect struct {
	From   PointRef            `json:"from"`
	To     PointRef            `json:"to"`
	Aspect valueobjects.Aspect `json:"aspect"`
}

// HouseOverlay maps one person's planet into the partner's house system.
// Significance comes from the fixed per-house weight table (1st/7th houses
// highest, the self/partnership axis).
type HouseOverlay struct {
	Person       int                 `json:"person"`
	Planet       valueobjects.Planet `json:"planet"`
	House        int                 `json:"house"`
	Significance float64             `json:"significance"`
}

// SynastryResult is the full inter-chart comparison: every planet×planet and
// planet×angle aspect, house overlays in both directions, and the optional
// vertex / lunar-node contact lists (empty, never an error, when the charts
// lack the data).
type SynastryResult struct {
	InterAspects         []InterAspect  `json:"interAspects"`
	HouseOverlays        []HouseOverlay `json:"houseOverlays"`
	VertexConnections    []InterAspect  `json:"vertexConnections"`
	LunarNodeConnections []InterAspect  `json:"lunarNodeConnections"`
	Score                float64        `json:"score"`
}

// CompositeInterpretation is the qualitative layer over a composite chart,
// produced by fixed threshold rules.
type CompositeInterpretation struct {
	DominantThemes    []string `json:"dominantThemes"`
	RelationshipStyle string   `json:"relationshipStyle"`
	Strengths         []string `json:"strengths"`
	Challenges        []string `json:"challenges"`
}

// CompositeResult carries the midpoint chart plus its interpretation.
type CompositeResult struct {
	Chart          *entities.CompositeChart `json:"chart"`
	Interpretation CompositeInterpretation  `json:"interpretation"`
}

// ScoreBreakdown is the three-way decomposition of the overall score.
type ScoreBreakdown struct {
	Synastry  float64 `json:"synastry"`
	Composite float64 `json:"composite"`
	Dynamics  float64 `json:"dynamics"`
}

// CompatibilityResult is the multi-factor score: overall 0-100, its
// breakdown, the qualitative rating band, and rule-derived string lists.
type CompatibilityResult struct {
	Overall         int            `json:"overall"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
	Rating          config.Rating  `json:"rating"`
	Strengths       []string       `json:"strengths"`
	Challenges      []string       `json:"challenges"`
	Recommendations []string       `json:"recommendations"`
}

// DimensionScore is one relationship-dynamics dimension.
type DimensionScore struct {
	Score       float64  `json:"score"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
}

// EvolutionIntensity grades how strongly transformative contacts show up.
type EvolutionIntensity string

const (
	IntensityLow      EvolutionIntensity = "Low"
	IntensityModerate EvolutionIntensity = "Moderate"
	IntensityHigh     EvolutionIntensity = "High"
	IntensityVeryHigh EvolutionIntensity = "VeryHigh"
)

// RelationshipEvolution assesses transformation pressure from Uranus/Pluto
// involvement.
type RelationshipEvolution struct {
	Transformative bool               `json:"transformative"`
	Intensity      EvolutionIntensity `json:"intensity"`
}

// DynamicsOverall is the roll-up across the six dimensions.
type DynamicsOverall struct {
	AverageScore      float64  `json:"averageScore"`
	DominantStrengths []string `json:"dominantStrengths"`
	KeyChallenges     []string `json:"keyChallenges"`
	RelationshipStyle string   `json:"relationshipStyle"`
	LongTermOutlook   string   `json:"longTermOutlook"`
}

// DynamicsResult holds the six dimension scores plus evolution and roll-up.
type DynamicsResult struct {
	Communication      DimensionScore        `json:"communication"`
	Emotional          DimensionScore        `json:"emotional"`
	Intimacy           DimensionScore        `json:"intimacy"`
	ConflictResolution DimensionScore        `json:"conflictResolution"`
	Growth             DimensionScore        `json:"growth"`
	Stability          DimensionScore        `json:"stability"`
	Evolution          RelationshipEvolution `json:"evolution"`
	Overall            DynamicsOverall       `json:"overall"`
}

// NamedDimension pairs a dimension with its display name for iteration.
type NamedDimension struct {
	Name  string
	Score DimensionScore
}

// Dimensions returns the six dimensions in canonical order.
func (d DynamicsResult) Dimensions() []NamedDimension {
	return []NamedDimension{
		{Name: "Communication", Score: d.Communication},
		{Name: "Emotional Connection", Score: d.Emotional},
		{Name: "Intimacy", Score: d.Intimacy},
		{Name: "Conflict Resolution", Score: d.ConflictResolution},
		{Name: "Growth Potential", Score: d.Growth},
		{Name: "Stability", Score: d.Stability},
	}
}

// AnalysisSummary is the human-readable synthesis over the whole analysis.
type AnalysisSummary struct {
	RelationshipType  string   `json:"relationshipType"`
	LongTermPotential float64  `json:"longTermPotential"`
	Recommendations   []string `json:"recommendations"`
}
