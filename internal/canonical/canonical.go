// Package canonical converts tariff records to and from their canonical
// text form, the unit of embedding. The field order and the rendering of
// NULL values are fixed: changing either invalidates every stored
// embedding and requires a full re-index.
package canonical

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tarix-ai/tarix/internal/models"
)

const (
	// FieldDelimiter separates the labeled fields of a canonical record.
	FieldDelimiter = "|"

	// fieldSeparator separates a field name from its value.
	fieldSeparator = ": "

	// nullValue is how a NULL column is rendered in canonical text.
	nullValue = "None"
)

// FieldNames lists the embedded columns in canonical order.
var FieldNames = []string{
	"htsnumber",
	"indent",
	"description",
	"unitofquantity",
	"generalrateofduty",
	"specialrateofduty",
	"extrarateofduty",
	"quotaquantity",
	"additionalduties",
}

// MalformedRecordError reports a canonical text that cannot be parsed back
// into field values.
type MalformedRecordError struct {
	Reason  string
	Segment string
}

func (e *MalformedRecordError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("malformed canonical record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed canonical record: %s (segment %q)", e.Reason, e.Segment)
}

// Canonicalize renders a tariff record as a single deterministic string of
// the form "htsnumber: v|indent: v|...|additionalduties: v". NULL columns
// are rendered as the literal "None".
func Canonicalize(rec models.TariffRecord) string {
	values := fieldValues(rec)
	parts := make([]string, len(FieldNames))
	for i, name := range FieldNames {
		parts[i] = name + fieldSeparator + values[i]
	}
	return strings.Join(parts, FieldDelimiter)
}

// Parse inverts Canonicalize. It returns a *MalformedRecordError when the
// segment count does not match the canonical field count, a segment lacks
// the name/value separator, a field name is out of order, or the indent
// value is not an integer.
//
// The inversion is lossy for one input: a column whose stored value is the
// literal string "None" is indistinguishable from NULL in canonical text
// and parses back to nil.
func Parse(text string) (models.TariffRecord, error) {
	var rec models.TariffRecord

	segments := strings.Split(text, FieldDelimiter)
	if len(segments) != len(FieldNames) {
		return rec, &MalformedRecordError{
			Reason: fmt.Sprintf("expected %d segments, got %d", len(FieldNames), len(segments)),
		}
	}

	values := make([]*string, len(FieldNames))
	for i, seg := range segments {
		name, value, found := strings.Cut(seg, fieldSeparator)
		if !found {
			return rec, &MalformedRecordError{Reason: "missing field separator", Segment: seg}
		}
		if name != FieldNames[i] {
			return rec, &MalformedRecordError{
				Reason:  fmt.Sprintf("expected field %q", FieldNames[i]),
				Segment: seg,
			}
		}
		if value != nullValue {
			v := value
			values[i] = &v
		}
	}

	rec.HTSNumber = values[0]
	if values[1] != nil {
		indent, err := strconv.Atoi(*values[1])
		if err != nil {
			return models.TariffRecord{}, &MalformedRecordError{
				Reason:  "indent is not an integer",
				Segment: segments[1],
			}
		}
		rec.Indent = &indent
	}
	rec.Description = values[2]
	rec.UnitOfQuantity = values[3]
	rec.GeneralRateOfDuty = values[4]
	rec.SpecialRateOfDuty = values[5]
	rec.ExtraRateOfDuty = values[6]
	rec.QuotaQuantity = values[7]
	rec.AdditionalDuties = values[8]
	return rec, nil
}

// fieldValues returns the record's column values in canonical order, with
// NULLs rendered as "None".
func fieldValues(rec models.TariffRecord) []string {
	indent := nullValue
	if rec.Indent != nil {
		indent = strconv.Itoa(*rec.Indent)
	}
	return []string{
		orNone(rec.HTSNumber),
		indent,
		orNone(rec.Description),
		orNone(rec.UnitOfQuantity),
		orNone(rec.GeneralRateOfDuty),
		orNone(rec.SpecialRateOfDuty),
		orNone(rec.ExtraRateOfDuty),
		orNone(rec.QuotaQuantity),
		orNone(rec.AdditionalDuties),
	}
}

func orNone(s *string) string {
	if s == nil {
		return nullValue
	}
	return *s
}
