package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/core/valueobjects"
	pkgerrors "astraea-backend/pkg/errors"
)

func TestNatalSummarizeValidatesInput(t *testing.T) {
	service := NewNatalService(nil)

	_, err := service.Summarize(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrChartRequired)
	assert.Contains(t, err.Error(), "chart")
}

func TestNatalPlacementsAndBalance(t *testing.T) {
	service := NewNatalService(nil)
	chart := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:     5,
		valueobjects.Moon:    35,
		valueobjects.Mercury: 10,
		valueobjects.Venus:   95,
		valueobjects.Mars:    185,
		valueobjects.Rahu:    100,
		valueobjects.Ketu:    280,
	}, 15, 275)

	summary, err := service.Summarize(chart)
	require.NoError(t, err)

	require.Len(t, summary.Placements, 7)
	assert.Equal(t, NatalPlacement{
		Planet:       valueobjects.Sun,
		Sign:         valueobjects.Aries,
		DegreeInSign: 5,
		House:        1,
	}, summary.Placements[0])
	assert.Equal(t, NatalPlacement{
		Planet:       valueobjects.Rahu,
		Sign:         valueobjects.Cancer,
		DegreeInSign: 10,
		House:        4,
	}, summary.Placements[5])
	assert.Equal(t, NatalPlacement{
		Planet:       valueobjects.Ketu,
		Sign:         valueobjects.Capricorn,
		DegreeInSign: 10,
		House:        10,
	}, summary.Placements[6])

	// The nodes appear as placements but stay out of the balance counts.
	var counted int
	for _, n := range summary.ElementBalance {
		counted += n
	}
	assert.Equal(t, 5, counted)

	assert.Equal(t, 2, summary.ElementBalance[valueobjects.Fire])
	assert.Equal(t, 1, summary.ElementBalance[valueobjects.Earth])
	assert.Equal(t, 1, summary.ElementBalance[valueobjects.Air])
	assert.Equal(t, 1, summary.ElementBalance[valueobjects.Water])
	assert.Equal(t, 4, summary.ModalityBalance[valueobjects.Cardinal])
	assert.Equal(t, 1, summary.ModalityBalance[valueobjects.Fixed])

	assert.Equal(t, valueobjects.Fire, summary.DominantElement)
	assert.Equal(t, valueobjects.Cardinal, summary.DominantModality)
	assert.Equal(t, "Cardinal Fire (Aries)", summary.Signature)
}

func TestNatalInternalAspects(t *testing.T) {
	service := NewNatalService(nil)
	chart := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:     5,
		valueobjects.Moon:    35,
		valueobjects.Mercury: 10,
	}, 15, 275)

	summary, err := service.Summarize(chart)
	require.NoError(t, err)

	assert.Contains(t, summary.InternalAspects, entities.PointAspect{
		Point1: valueobjects.PlanetPoint(valueobjects.Sun),
		Point2: valueobjects.PlanetPoint(valueobjects.Mercury),
		Aspect: aspectOf(t, valueobjects.Conjunction, 5, 5),
	})

	// The angle axes always oppose each other exactly.
	ascDsc := entities.PointAspect{
		Point1: valueobjects.AnglePointRef(valueobjects.Ascendant),
		Point2: valueobjects.AnglePointRef(valueobjects.Descendant),
	}
	aspect, err := valueobjects.NewAspect(valueobjects.Opposition, 180, 0, true)
	require.NoError(t, err)
	ascDsc.Aspect = aspect
	assert.Contains(t, summary.InternalAspects, ascDsc)
}

func TestNatalSignatureVariants(t *testing.T) {
	service := NewNatalService(nil)

	// All five planets in fixed signs, earth leading.
	chart := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:     35,
		valueobjects.Moon:    45,
		valueobjects.Mercury: 130,
		valueobjects.Venus:   215,
		valueobjects.Mars:    305,
	}, 15, 275)

	summary, err := service.Summarize(chart)
	require.NoError(t, err)
	assert.Equal(t, "Fixed Earth (Taurus)", summary.Signature)
}

func TestNatalDominantsBreakTiesInFixedOrder(t *testing.T) {
	service := NewNatalService(nil)
	chart := chartWith(t, map[valueobjects.Planet]float64{
		valueobjects.Sun:  35, // Taurus: fixed earth
		valueobjects.Moon: 5,  // Aries: cardinal fire
	}, 15, 275)

	summary, err := service.Summarize(chart)
	require.NoError(t, err)

	assert.Equal(t, valueobjects.Fire, summary.DominantElement)
	assert.Equal(t, valueobjects.Cardinal, summary.DominantModality)
}
