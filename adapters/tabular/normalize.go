package tabular

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"intakegate/domain/intake"
)

// Normalization steps recorded on each Transformation
const (
	StepRemoveBOM       = "remove_bom"
	StepRemoveInvisible = "remove_invisible"
	StepNFC             = "nfc"
	StepTrim            = "trim"
)

var invisible = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
)

// Normalize applies the mechanical cleanups in fixed order and reports which ones changed
// the value. It never alters letters, digits or punctuation.
func Normalize(s string) (string, []string) {
	var steps []string
	out := s
	if strings.ContainsRune(out, '\ufeff') {
		out = strings.ReplaceAll(out, "\ufeff", "")
		steps = append(steps, StepRemoveBOM)
	}
	if stripped := invisible.Replace(out); stripped != out {
		out = stripped
		steps = append(steps, StepRemoveInvisible)
	}
	if !norm.NFC.IsNormalString(out) {
		out = norm.NFC.String(out)
		steps = append(steps, StepNFC)
	}
	if trimmed := strings.TrimSpace(out); trimmed != out {
		out = trimmed
		steps = append(steps, StepTrim)
	}
	return out, steps
}

// normalizer collects the transformation log of one file
type normalizer struct {
	role intake.FileRole
	log  []intake.Transformation
}

func (n *normalizer) apply(index int, field, value string) string {
	out, steps := Normalize(value)
	if len(steps) > 0 {
		n.log = append(n.log, intake.Transformation{
			Ref:        intake.RowRef{File: n.role, Index: index},
			Field:      field,
			Original:   value,
			Normalized: out,
			Steps:      steps,
		})
	}
	return out
}
