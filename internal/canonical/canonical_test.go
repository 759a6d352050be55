package canonical_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarix-ai/tarix/internal/canonical"
	"github.com/tarix-ai/tarix/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func sampleRecord() models.TariffRecord {
	return models.TariffRecord{
		HTSNumber:         strPtr("0101.21.00"),
		Indent:            intPtr(2),
		Description:       strPtr("Purebred breeding animals"),
		UnitOfQuantity:    strPtr("No."),
		GeneralRateOfDuty: strPtr("Free"),
		SpecialRateOfDuty: nil,
		ExtraRateOfDuty:   nil,
		QuotaQuantity:     nil,
		AdditionalDuties:  nil,
	}
}

func TestCanonicalize_FixedFieldOrder(t *testing.T) {
	text := canonical.Canonicalize(sampleRecord())

	want := "htsnumber: 0101.21.00|indent: 2|description: Purebred breeding animals|" +
		"unitofquantity: No.|generalrateofduty: Free|specialrateofduty: None|" +
		"extrarateofduty: None|quotaquantity: None|additionalduties: None"
	assert.Equal(t, want, text)
}

func TestCanonicalize_Deterministic(t *testing.T) {
	rec := sampleRecord()
	first := canonical.Canonicalize(rec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, canonical.Canonicalize(rec))
	}
}

func TestCanonicalize_AllNull(t *testing.T) {
	text := canonical.Canonicalize(models.TariffRecord{})
	assert.Equal(t, 9, len(strings.Split(text, "|")))
	for _, seg := range strings.Split(text, "|") {
		assert.True(t, strings.HasSuffix(seg, ": None"), "segment %q", seg)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	cases := []models.TariffRecord{
		sampleRecord(),
		{},
		{HTSNumber: strPtr("9903.88.15"), Indent: intPtr(0), GeneralRateOfDuty: strPtr("25%")},
		{Description: strPtr("Horses: Other: Imported for immediate slaughter"), Indent: intPtr(3)},
	}

	for _, rec := range cases {
		parsed, err := canonical.Parse(canonical.Canonicalize(rec))
		require.NoError(t, err)
		assert.Equal(t, rec, parsed)
	}
}

func TestParse_SegmentCountMismatch(t *testing.T) {
	_, err := canonical.Parse("htsnumber: 0101|indent: 2")
	require.Error(t, err)

	var malformed *canonical.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Error(), "expected 9 segments")
}

func TestParse_MissingSeparator(t *testing.T) {
	rec := sampleRecord()
	text := canonical.Canonicalize(rec)
	broken := strings.Replace(text, "generalrateofduty: Free", "generalrateofduty", 1)

	_, err := canonical.Parse(broken)
	var malformed *canonical.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
}

func TestParse_FieldOutOfOrder(t *testing.T) {
	text := canonical.Canonicalize(sampleRecord())
	broken := strings.Replace(text, "indent: 2", "depth: 2", 1)

	_, err := canonical.Parse(broken)
	var malformed *canonical.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
}

func TestParse_NonIntegerIndent(t *testing.T) {
	text := canonical.Canonicalize(sampleRecord())
	broken := strings.Replace(text, "indent: 2", "indent: two", 1)

	_, err := canonical.Parse(broken)
	var malformed *canonical.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Error(), "integer")
}

// A stored value that is literally "None" renders identically to NULL, so
// it parses back to nil. The ambiguity is inherent in the canonical text
// form and documented on Parse.
func TestParse_LiteralNoneCollapsesToNull(t *testing.T) {
	rec := sampleRecord()
	rec.GeneralRateOfDuty = strPtr("None")

	parsed, err := canonical.Parse(canonical.Canonicalize(rec))
	require.NoError(t, err)
	assert.Nil(t, parsed.GeneralRateOfDuty)
}

// A description containing the field delimiter cannot survive the round
// trip; Parse must reject it rather than shift values into wrong columns.
func TestParse_DelimiterInValueRejected(t *testing.T) {
	rec := sampleRecord()
	rec.Description = strPtr("Purebred | breeding animals")

	_, err := canonical.Parse(canonical.Canonicalize(rec))
	var malformed *canonical.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
}
