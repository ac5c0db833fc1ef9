package recist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oncotrack/response-api/internal/model"
)

// fallbackKeySep joins the components of a synthesized lesion key. It must
// never change: key stability across timepoints is what keeps a lesion on
// one row.
const fallbackKeySep = "|"

// LesionKey resolves the stable identity of an observation. An explicit
// lesion id wins; otherwise the key is kind|site|station-or-location.
// Callers omitting lesion ids must keep that combination patient-unique,
// or distinct lesions merge into one row (the merge is silent).
func LesionKey(obs *model.LesionObservation) string {
	if obs.LesionID != "" {
		return obs.LesionID
	}
	loc := obs.Station
	if loc == "" {
		loc = obs.Location
	}
	return strings.Join([]string{string(obs.Kind), obs.Site, loc}, fallbackKeySep)
}

// BuildLesionMatrix reconciles one patient's per-lesion observations into
// identity-stable rows across all study dates. The series must already be
// date-sorted, which BuildPatientSeries guarantees.
//
// Labels are assigned in first-seen order, so they are reproducible for a
// given chronological input. Row sort is targets first, then site
// ascending.
func BuildLesionMatrix(series *model.PatientSeries) *model.LesionMatrix {
	matrix := &model.LesionMatrix{PatientID: series.PatientID}
	if len(series.Timepoints) == 0 {
		return matrix
	}

	baselineIdx := 0
	for i, tp := range series.Timepoints {
		if tp.Timepoint == 0 {
			baselineIdx = i
			break
		}
	}

	rows := make(map[string]*model.LesionRow)
	var order []string

	for i, tp := range series.Timepoints {
		matrix.Dates = append(matrix.Dates, tp.StudyDate)

		for j := range tp.Lesions {
			obs := &tp.Lesions[j]
			key := LesionKey(obs)

			row, ok := rows[key]
			if !ok {
				order = append(order, key)
				row = &model.LesionRow{
					Key:           key,
					Label:         fmt.Sprintf("L%d", len(order)),
					Kind:          obs.Kind,
					Site:          obs.Site,
					MeasureRule:   obs.MeasureRule,
					Measurements:  make(map[string]float64),
					Contributions: make(map[string]float64),
				}
				rows[key] = row
			}

			if obs.Target {
				row.Target = true
			}

			// Displayed cell comes from the current value regardless of
			// whether this observation plays the baseline or follow-up role.
			if obs.CurrentMM != nil {
				row.Measurements[tp.StudyDate] = *obs.CurrentMM
			}

			// Contribution cells exist only where the target flag is set;
			// absence means "not contributing", not zero.
			if obs.Target {
				v := obs.FollowMM
				if i == baselineIdx {
					v = obs.MeasureMM
				}
				if v != nil {
					row.Contributions[tp.StudyDate] = *v
				}
			}
		}
	}

	out := make([]*model.LesionRow, 0, len(order))
	for _, key := range order {
		out = append(out, rows[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target
		}
		return out[i].Site < out[j].Site
	})

	matrix.Rows = out
	return matrix
}
