// Package recist derives longitudinal response views from flat
// per-timepoint measurement records: per-patient SLD series with
// baseline/nadir-relative deltas, and lesion-identity-stable
// (lesion x date) matrices.
//
// Everything in this package is a pure function of its input. Missing
// data degrades to nil deltas or documented defaults; nothing here
// returns an error, so the output is always renderable.
package recist

import (
	"sort"

	"github.com/oncotrack/response-api/internal/model"
)

// BuildPatientSeries groups records by patient, orders each group by
// study date and folds the SLD, percent-from-baseline and
// percent-from-nadir through it. The result is sorted by patient id.
//
// Duplicate timepoints are kept as separate entries. Study dates are ISO
// strings, so plain string comparison orders them; ties keep input order.
func BuildPatientSeries(records []*model.MeasurementRecord) []*model.PatientSeries {
	groups := make(map[string][]*model.MeasurementRecord)
	for _, rec := range records {
		groups[rec.PatientID] = append(groups[rec.PatientID], rec)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	series := make([]*model.PatientSeries, 0, len(ids))
	for _, id := range ids {
		recs := groups[id]
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].StudyDate < recs[j].StudyDate
		})
		series = append(series, buildSeries(id, recs))
	}
	return series
}

func buildSeries(patientID string, recs []*model.MeasurementRecord) *model.PatientSeries {
	baseline := baselineRecord(recs)

	// Nadir seeds from the baseline record's baseline value and adopts
	// the first observed SLD when that is absent.
	var nadir *float64
	if baseline.BaselineSLD != nil {
		v := *baseline.BaselineSLD
		nadir = &v
	}

	points := make([]*model.Timepoint, 0, len(recs))
	for _, rec := range recs {
		var sld float64
		if rec.Timepoint == 0 {
			sld = ResolveValue(0, rec.BaselineSLD).Value
		} else {
			sld = ResolveValue(0, rec.CurrentSLD, rec.BaselineSLD).Value
		}

		if nadir == nil || sld < *nadir {
			v := sld
			nadir = &v
		}

		points = append(points, &model.Timepoint{
			MeasurementRecord: *rec,
			SLD:               sld,
			Nadir:             *nadir,
			PctFromBaseline:   percentChange(sld, rec.BaselineSLD),
			PctFromNadir:      percentChange(sld, nadir),
		})
	}

	return &model.PatientSeries{PatientID: patientID, Timepoints: points}
}

// baselineRecord returns the record with timepoint 0, or the
// chronologically first record when none is marked as baseline.
func baselineRecord(recs []*model.MeasurementRecord) *model.MeasurementRecord {
	for _, rec := range recs {
		if rec.Timepoint == 0 {
			return rec
		}
	}
	return recs[0]
}
