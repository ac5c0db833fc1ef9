package model

// Timepoint is a MeasurementRecord enriched with the derived response
// numbers. SLD is the aggregate value chosen for the timepoint, Nadir the
// recomputed running minimum up to and including it. The percent deltas
// are nil when their reference value is missing, zero or negative;
// consumers must render nil as "no data", not zero.
type Timepoint struct {
	MeasurementRecord
	SLD             float64  `json:"sld_mm"`
	Nadir           float64  `json:"nadir_mm"`
	PctFromBaseline *float64 `json:"pct_from_baseline"`
	PctFromNadir    *float64 `json:"pct_from_nadir"`
}

// PatientSeries is one patient's chronologically ordered course.
type PatientSeries struct {
	PatientID  string       `json:"patient_id"`
	Timepoints []*Timepoint `json:"timepoints"`
}

// LesionRow tracks one physical lesion across all of a patient's study
// dates. Label is assigned in first-seen order ("L1", "L2", ...).
// Measurements holds the displayed value per date; Contributions holds the
// SLD-contributing value and has an entry only for dates where the lesion
// was a target — a missing entry means "not contributing", which is
// distinct from contributing zero.
type LesionRow struct {
	Key           string             `json:"key"`
	Label         string             `json:"label"`
	Kind          LesionKind         `json:"kind"`
	Site          string             `json:"site"`
	MeasureRule   MeasureRule        `json:"measure_rule,omitempty"`
	Target        bool               `json:"target"`
	Measurements  map[string]float64 `json:"measurements"`
	Contributions map[string]float64 `json:"contributions"`
}

// LesionMatrix is the (lesion x date) view for one patient.
type LesionMatrix struct {
	PatientID string       `json:"patient_id"`
	Dates     []string     `json:"dates"`
	Rows      []*LesionRow `json:"rows"`
}
