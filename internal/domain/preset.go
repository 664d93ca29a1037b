package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExamMode identifies the entrance exam a question set is written for
type ExamMode string

const (
	ExamJEE    ExamMode = "JEE"
	ExamBITSAT ExamMode = "BITSAT"
	ExamVITEEE ExamMode = "VITEEE"
)

// ParseExamMode accepts an exam mode name in any case
func ParseExamMode(s string) (ExamMode, error) {
	for _, m := range []ExamMode{ExamJEE, ExamBITSAT, ExamVITEEE} {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExamMode, s)
}

// ExamPreset describes the full-length simulation for one exam mode
type ExamPreset struct {
	Mode           ExamMode            `json:"mode" yaml:"mode"`
	Subjects       map[string][]string `json:"subjects" yaml:"subjects"`
	TotalQuestions int                 `json:"total_questions" yaml:"total_questions"`
	Duration       time.Duration       `json:"duration" yaml:"duration"`
}

// SubjectNames returns the preset's subjects in sorted order
func (p ExamPreset) SubjectNames() []string {
	names := make([]string, 0, len(p.Subjects))
	for name := range p.Subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultPresets returns the built-in simulation layouts
func DefaultPresets() map[ExamMode]ExamPreset {
	return map[ExamMode]ExamPreset{
		ExamJEE: {
			Mode: ExamJEE,
			Subjects: map[string][]string{
				"Physics":     {"Kinematics", "Laws of Motion", "Work, Energy, and Power", "Rotational Motion", "Optics", "Thermodynamics", "Electrostatics"},
				"Chemistry":   {"Chemical Bonding", "Equilibrium", "s-Block Elements", "p-Block Elements", "Organic Chemistry - GOC", "Hydrocarbons", "Electrochemistry"},
				"Mathematics": {"Complex Numbers", "Quadratic Equations", "Calculus", "Trigonometry", "Conic Sections", "Vectors", "Probability"},
			},
			TotalQuestions: 75,
			Duration:       3 * time.Hour,
		},
		ExamBITSAT: {
			Mode: ExamBITSAT,
			Subjects: map[string][]string{
				"Physics":             {"Units & Measurement", "Heat & Thermodynamics", "Wave Motion", "Current Electricity"},
				"Chemistry":           {"States of Matter", "Atomic Structure", "Chemical Kinetics", "Biomolecules"},
				"English Proficiency": {"Grammar", "Vocabulary", "Reading Comprehension"},
				"Logical Reasoning":   {"Verbal Reasoning", "Non-verbal Reasoning"},
				"Mathematics":         {"Algebra", "Trigonometry", "Two-dimensional Coordinate Geometry", "Differential calculus"},
			},
			TotalQuestions: 130,
			Duration:       3 * time.Hour,
		},
		ExamVITEEE: {
			Mode: ExamVITEEE,
			Subjects: map[string][]string{
				"Physics":          {"Laws of Motion & Work, Energy and Power", "Properties of Matter", "Electrostatics", "Magnetic Effects of Electric Current"},
				"Chemistry":        {"Atomic Structure", "Thermodynamics", "Organic Chemistry", "Coordination Chemistry"},
				"Mathematics":      {"Calculus", "Vector Algebra", "Probability and Distributions"},
				"English Aptitude": {"Grammar and Pronunciation", "Comprehension"},
			},
			TotalQuestions: 125,
			Duration:       2*time.Hour + 30*time.Minute,
		},
	}
}
