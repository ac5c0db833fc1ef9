// Package ingest parses the newline-delimited JSON feed of measurement
// records. Malformed lines are skipped and counted, never fatal.
package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/oncotrack/response-api/internal/model"
)

// maxLineBytes bounds a single record line; lesion lists stay small at
// expected cohort sizes.
const maxLineBytes = 1 << 20

// Result carries the parsed records plus skip accounting.
type Result struct {
	Records []*model.MeasurementRecord
	Skipped int
}

// rawRecist is the nested form of the aggregate fields, as written by the
// cohort generators' meta.json.
type rawRecist struct {
	BaselineSLD     *float64 `json:"baseline_sld_mm"`
	CurrentSLD      *float64 `json:"current_sld_mm"`
	NadirSLD        *float64 `json:"nadir_sld_mm"`
	OverallResponse string   `json:"overall_response"`
}

// rawExtras is the one-level container some feeds nest the lesion list
// under.
type rawExtras struct {
	Lesions []model.LesionObservation `json:"lesions"`
}

// rawRecord accepts both the flat cohort-index shape and the nested
// meta.json shape. Flat fields win when both are present.
type rawRecord struct {
	PatientID       string                    `json:"patient_id"`
	Timepoint       *int                      `json:"timepoint"`
	StudyDate       string                    `json:"study_date"`
	BaselineSLD     *float64                  `json:"baseline_sld_mm"`
	CurrentSLD      *float64                  `json:"current_sld_mm"`
	NadirSLD        *float64                  `json:"nadir_sld_mm"`
	OverallResponse string                    `json:"overall_response"`
	Recist          *rawRecist                `json:"recist"`
	Lesions         []model.LesionObservation `json:"lesions"`
	Extras          *rawExtras                `json:"extras"`
}

func (r *rawRecord) toRecord() *model.MeasurementRecord {
	rec := &model.MeasurementRecord{
		PatientID:       r.PatientID,
		StudyDate:       r.StudyDate,
		BaselineSLD:     r.BaselineSLD,
		CurrentSLD:      r.CurrentSLD,
		NadirSLD:        r.NadirSLD,
		OverallResponse: r.OverallResponse,
		Lesions:         r.Lesions,
	}
	if r.Timepoint != nil {
		rec.Timepoint = *r.Timepoint
	}
	if r.Recist != nil {
		if rec.BaselineSLD == nil {
			rec.BaselineSLD = r.Recist.BaselineSLD
		}
		if rec.CurrentSLD == nil {
			rec.CurrentSLD = r.Recist.CurrentSLD
		}
		if rec.NadirSLD == nil {
			rec.NadirSLD = r.Recist.NadirSLD
		}
		if rec.OverallResponse == "" {
			rec.OverallResponse = r.Recist.OverallResponse
		}
	}
	if rec.Lesions == nil && r.Extras != nil {
		rec.Lesions = r.Extras.Lesions
	}
	return rec
}

// ReadRecords consumes one JSON object per line from r. Lines that fail to
// parse or lack patient_id/study_date are dropped with a warning; blank
// lines are ignored without counting.
func ReadRecords(r io.Reader) (*Result, error) {
	result := &Result{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			result.Skipped++
			log.Warn().Int("line", lineNo).Err(err).Msg("skipping malformed record line")
			continue
		}
		if raw.PatientID == "" || raw.StudyDate == "" {
			result.Skipped++
			log.Warn().Int("line", lineNo).Msg("skipping record without patient_id or study_date")
			continue
		}
		if raw.Timepoint != nil && *raw.Timepoint < 0 {
			result.Skipped++
			log.Warn().Int("line", lineNo).Int("timepoint", *raw.Timepoint).Msg("skipping record with negative timepoint")
			continue
		}

		result.Records = append(result.Records, raw.toRecord())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
