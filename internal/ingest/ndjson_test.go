package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRecords_FlatAndNested(t *testing.T) {
	input := strings.Join([]string{
		`{"patient_id":"PID000001","study_date":"2023-01-10","timepoint":0,"baseline_sld_mm":50,"overall_response":"Baseline (no category)"}`,
		`{"patient_id":"PID000001","study_date":"2023-03-07","timepoint":1,"recist":{"baseline_sld_mm":50,"current_sld_mm":30,"overall_response":"PR"}}`,
	}, "\n")

	res, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Zero(t, res.Skipped)

	require.NotNil(t, res.Records[0].BaselineSLD)
	assert.Equal(t, 50.0, *res.Records[0].BaselineSLD)

	nested := res.Records[1]
	require.NotNil(t, nested.CurrentSLD)
	assert.Equal(t, 30.0, *nested.CurrentSLD)
	assert.Equal(t, "PR", nested.OverallResponse)
}

func TestReadRecords_FlatWinsOverNested(t *testing.T) {
	input := `{"patient_id":"P1","study_date":"2023-01-10","current_sld_mm":42,"overall_response":"SD","recist":{"current_sld_mm":99,"overall_response":"PD"}}`

	res, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 42.0, *res.Records[0].CurrentSLD)
	assert.Equal(t, "SD", res.Records[0].OverallResponse)
}

func TestReadRecords_LesionsTopLevelOrUnderExtras(t *testing.T) {
	input := strings.Join([]string{
		`{"patient_id":"P1","study_date":"2023-01-10","lesions":[{"lesion_id":"L-1","kind":"primary","site":"lung","current_mm":40,"target":true}]}`,
		`{"patient_id":"P1","study_date":"2023-03-07","extras":{"lesions":[{"lesion_id":"L-1","kind":"primary","site":"lung","current_mm":33,"target":true}]}}`,
	}, "\n")

	res, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	require.Len(t, res.Records[0].Lesions, 1)
	require.Len(t, res.Records[1].Lesions, 1)
	assert.Equal(t, "L-1", res.Records[1].Lesions[0].LesionID)
}

func TestReadRecords_SkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"patient_id":"P1","study_date":"2023-01-10"}`,
		`{not json`,
		``,
		`{"study_date":"2023-01-10"}`,
		`{"patient_id":"P1"}`,
		`{"patient_id":"P1","study_date":"2023-03-07","timepoint":-2}`,
		`{"patient_id":"P1","study_date":"2023-03-07","timepoint":1}`,
	}, "\n")

	res, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 4, res.Skipped, "blank lines are not counted as skips")
}

func TestReadRecords_TimepointDefaultsToZero(t *testing.T) {
	res, err := ReadRecords(strings.NewReader(`{"patient_id":"P1","study_date":"2023-01-10"}`))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 0, res.Records[0].Timepoint)
}
