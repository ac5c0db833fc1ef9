package model

// LesionKind classifies a tracked lesion.
type LesionKind string

const (
	LesionKindPrimary    LesionKind = "primary"
	LesionKindNode       LesionKind = "ln"
	LesionKindMetastasis LesionKind = "met"
)

// MeasureRule is the clinical measurement convention for a lesion. Nodal
// lesions are measured by short axis, everything else by longest diameter.
// The rule affects interpretation only, never how values are aggregated.
type MeasureRule string

const (
	MeasureRuleLongestDiameter MeasureRule = "longest_diameter"
	MeasureRuleShortAxis       MeasureRule = "short_axis"
)

// LesionObservation is one lesion's measurement at one timepoint.
// MeasureMM carries the baseline-role value, FollowMM the follow-up-role
// value; CurrentMM is the value displayed for the timepoint regardless of
// role. Target marks the lesion as contributing to the SLD at this
// timepoint.
type LesionObservation struct {
	LesionID    string      `json:"lesion_id,omitempty"`
	Kind        LesionKind  `json:"kind"`
	Site        string      `json:"site"`
	Station     string      `json:"station,omitempty"`
	Location    string      `json:"location,omitempty"`
	MeasureRule MeasureRule `json:"measure_rule,omitempty"`
	MeasureMM   *float64    `json:"measure_mm,omitempty"`
	FollowMM    *float64    `json:"follow_mm,omitempty"`
	CurrentMM   *float64    `json:"current_mm,omitempty"`
	Target      bool        `json:"target"`
}

// MeasurementRecord is one patient study at one timepoint. Timepoint 0 is
// baseline. NadirSLD is advisory input only; the series builder recomputes
// the nadir from scratch. OverallResponse passes through unchanged.
type MeasurementRecord struct {
	PatientID       string              `json:"patient_id" db:"patient_id"`
	Timepoint       int                 `json:"timepoint" db:"timepoint"`
	StudyDate       string              `json:"study_date" db:"study_date"`
	BaselineSLD     *float64            `json:"baseline_sld_mm,omitempty" db:"baseline_sld_mm"`
	CurrentSLD      *float64            `json:"current_sld_mm,omitempty" db:"current_sld_mm"`
	NadirSLD        *float64            `json:"nadir_sld_mm,omitempty" db:"nadir_sld_mm"`
	OverallResponse string              `json:"overall_response,omitempty" db:"overall_response"`
	Lesions         []LesionObservation `json:"lesions,omitempty" db:"-"`

	// LesionsJSON is the serialized form persisted in the lesions column.
	LesionsJSON string `json:"-" db:"lesions"`
}

// ImportResult summarizes one NDJSON import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Patients int `json:"patients"`
}
