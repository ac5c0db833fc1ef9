package recist

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncotrack/response-api/internal/model"
)

func rec(patient string, tp int, date string, baseline, current *float64) *model.MeasurementRecord {
	return &model.MeasurementRecord{
		PatientID:   patient,
		Timepoint:   tp,
		StudyDate:   date,
		BaselineSLD: baseline,
		CurrentSLD:  current,
	}
}

func TestBuildPatientSeries_ResponseScenario(t *testing.T) {
	series := BuildPatientSeries([]*model.MeasurementRecord{
		rec("PID000001", 0, "2023-01-10", fptr(50), nil),
		rec("PID000001", 1, "2023-03-07", fptr(50), fptr(30)),
		rec("PID000001", 2, "2023-05-02", fptr(50), fptr(45)),
	})

	require.Len(t, series, 1)
	tps := series[0].Timepoints
	require.Len(t, tps, 3)

	assert.Equal(t, 50.0, tps[0].SLD)
	require.NotNil(t, tps[0].PctFromBaseline)
	assert.InDelta(t, 0.0, *tps[0].PctFromBaseline, 1e-9)

	assert.Equal(t, 30.0, tps[1].SLD)
	assert.Equal(t, 30.0, tps[1].Nadir)
	require.NotNil(t, tps[1].PctFromBaseline)
	assert.InDelta(t, -40.0, *tps[1].PctFromBaseline, 1e-9)
	require.NotNil(t, tps[1].PctFromNadir)
	assert.InDelta(t, 0.0, *tps[1].PctFromNadir, 1e-9)

	assert.Equal(t, 45.0, tps[2].SLD)
	assert.Equal(t, 30.0, tps[2].Nadir, "nadir must not move back up")
	require.NotNil(t, tps[2].PctFromBaseline)
	assert.InDelta(t, -10.0, *tps[2].PctFromBaseline, 1e-9)
	require.NotNil(t, tps[2].PctFromNadir)
	assert.InDelta(t, 50.0, *tps[2].PctFromNadir, 1e-9)
}

func TestBuildPatientSeries_GroupsAndSorts(t *testing.T) {
	series := BuildPatientSeries([]*model.MeasurementRecord{
		rec("PID000002", 1, "2023-04-01", fptr(40), fptr(35)),
		rec("PID000001", 0, "2023-01-10", fptr(50), nil),
		rec("PID000002", 0, "2023-02-01", fptr(40), nil),
		rec("PID000001", 1, "2023-03-07", fptr(50), fptr(30)),
	})

	require.Len(t, series, 2)
	assert.Equal(t, "PID000001", series[0].PatientID)
	assert.Equal(t, "PID000002", series[1].PatientID)

	for _, s := range series {
		for i := 1; i < len(s.Timepoints); i++ {
			assert.LessOrEqual(t, s.Timepoints[i-1].StudyDate, s.Timepoints[i].StudyDate)
		}
	}
}

func TestBuildPatientSeries_BaselineFallsBackToFirstRecord(t *testing.T) {
	// No timepoint 0 anywhere: the chronologically first record seeds the
	// nadir.
	series := BuildPatientSeries([]*model.MeasurementRecord{
		rec("PID000003", 2, "2023-05-01", fptr(60), fptr(55)),
		rec("PID000003", 1, "2023-03-01", fptr(60), fptr(48)),
	})

	require.Len(t, series, 1)
	tps := series[0].Timepoints
	require.Len(t, tps, 2)
	assert.Equal(t, 48.0, tps[0].SLD)
	assert.Equal(t, 48.0, tps[0].Nadir)
	assert.Equal(t, 48.0, tps[1].Nadir)
}

func TestBuildPatientSeries_MissingValuesDegrade(t *testing.T) {
	series := BuildPatientSeries([]*model.MeasurementRecord{
		rec("PID000004", 0, "2023-01-01", nil, nil),
		rec("PID000004", 1, "2023-03-01", nil, nil),
		rec("PID000004", 2, "2023-05-01", fptr(20), nil),
	})

	require.Len(t, series, 1)
	tps := series[0].Timepoints

	// All-absent degrades to 0, never an error.
	assert.Equal(t, 0.0, tps[0].SLD)
	assert.Nil(t, tps[0].PctFromBaseline)
	assert.Nil(t, tps[0].PctFromNadir, "nadir of 0 is not a positive reference")

	// Current absent falls back to the record's baseline value.
	assert.Equal(t, 20.0, tps[2].SLD)
	require.NotNil(t, tps[2].PctFromBaseline)
	assert.InDelta(t, 0.0, *tps[2].PctFromBaseline, 1e-9)
}

func TestBuildPatientSeries_PctFromBaselineNilOnBadReference(t *testing.T) {
	series := BuildPatientSeries([]*model.MeasurementRecord{
		rec("PID000005", 0, "2023-01-01", fptr(0), nil),
		rec("PID000005", 1, "2023-03-01", fptr(0), fptr(12)),
		rec("PID000006", 0, "2023-01-01", fptr(-5), nil),
	})

	for _, s := range series {
		for _, tp := range s.Timepoints {
			assert.Nil(t, tp.PctFromBaseline)
		}
	}
}

func TestBuildPatientSeries_DuplicateTimepointsPassThrough(t *testing.T) {
	series := BuildPatientSeries([]*model.MeasurementRecord{
		rec("PID000007", 1, "2023-03-01", fptr(50), fptr(40)),
		rec("PID000007", 1, "2023-03-01", fptr(50), fptr(41)),
		rec("PID000007", 0, "2023-01-01", fptr(50), nil),
	})

	require.Len(t, series, 1)
	require.Len(t, series[0].Timepoints, 3, "duplicates are not collapsed")
	// Equal dates keep input order.
	assert.Equal(t, 40.0, series[0].Timepoints[1].SLD)
	assert.Equal(t, 41.0, series[0].Timepoints[2].SLD)
}

func TestBuildPatientSeries_NadirMonotoneUnderShuffle(t *testing.T) {
	records := []*model.MeasurementRecord{
		rec("PID000008", 0, "2023-01-01", fptr(80), nil),
		rec("PID000008", 1, "2023-02-20", fptr(80), fptr(62)),
		rec("PID000008", 2, "2023-04-12", fptr(80), fptr(44)),
		rec("PID000008", 3, "2023-06-03", fptr(80), fptr(51)),
		rec("PID000008", 4, "2023-07-29", fptr(80), fptr(39)),
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]*model.MeasurementRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		series := BuildPatientSeries(shuffled)
		require.Len(t, series, 1)
		tps := series[0].Timepoints
		require.Len(t, tps, len(records))
		for i := 1; i < len(tps); i++ {
			assert.LessOrEqual(t, tps[i-1].StudyDate, tps[i].StudyDate)
			assert.GreaterOrEqual(t, tps[i-1].Nadir, tps[i].Nadir)
		}
	}
}

func TestBuildPatientSeries_NadirAdoptsFirstSeenValue(t *testing.T) {
	// Baseline value missing entirely: the first computed SLD becomes the
	// nadir instead of staying unset.
	series := BuildPatientSeries([]*model.MeasurementRecord{
		rec("PID000009", 0, "2023-01-01", nil, nil),
		rec("PID000009", 1, "2023-03-01", nil, fptr(30)),
	})

	require.Len(t, series, 1)
	tps := series[0].Timepoints
	assert.Equal(t, 0.0, tps[0].Nadir)
	assert.Equal(t, 0.0, tps[1].Nadir)
}

func TestBuildPatientSeries_EmptyInput(t *testing.T) {
	assert.Empty(t, BuildPatientSeries(nil))
}
