// Package answer turns retrieved tariff records into a grounding context
// block and synthesizes a natural-language answer from it.
package answer

import (
	"fmt"
	"strings"

	"github.com/tarix-ai/tarix/internal/models"
)

const (
	// NoDataResponse is returned when retrieval produced no context. The
	// generation model is never invoked in that case.
	NoDataResponse = "No relevant data found based on the context."

	// noSourcePlaceholder stands in for records without an HTS number.
	noSourcePlaceholder = "No valid HTS number"

	// noSourcesAvailable is the sources entry when nothing was retrieved.
	noSourcesAvailable = "Source not available for relevant data."

	// recordSeparator fences records inside the context block.
	recordSeparator = "\n\n---\n\n"

	// htsLookupURL templates a record's HTS number into the official
	// tariff schedule search page.
	htsLookupURL = "https://hts.usitc.gov/search?query=%s"
)

// AssembleContext renders the retrieved records as a labeled, separator-
// fenced context block in retrieval order. An empty input yields an empty
// string; callers must short-circuit on it instead of invoking generation.
func AssembleContext(records []models.TariffRecord) string {
	blocks := make([]string, len(records))
	for i := range records {
		blocks[i] = formatRecord(&records[i])
	}
	return strings.Join(blocks, recordSeparator)
}

// Sources returns one reference string per record, in retrieval order.
// Records without an HTS number yield a literal placeholder rather than a
// malformed URL. An empty retrieval yields a single "not available" entry.
func Sources(records []models.TariffRecord) []string {
	if len(records) == 0 {
		return []string{noSourcesAvailable}
	}
	sources := make([]string, len(records))
	for i := range records {
		if records[i].HTSNumber == nil {
			sources[i] = noSourcePlaceholder
			continue
		}
		sources[i] = fmt.Sprintf(htsLookupURL, *records[i].HTSNumber)
	}
	return sources
}

// formatRecord renders one record as labeled multi-line text, mirroring
// the context rows the downstream model was tuned on.
func formatRecord(rec *models.TariffRecord) string {
	return fmt.Sprintf(
		"HTS Number: %s\nDescription: %s\nUnit of Quantity: %s\nGeneral Rate of Duty: %s\n"+
			"Special Rate of Duty: %s\nExtra Rate of Duty: %s\nQuota Quantity: %s\nAdditional Duties: %s",
		display(rec.HTSNumber),
		display(rec.Description),
		display(rec.UnitOfQuantity),
		display(rec.GeneralRateOfDuty),
		display(rec.SpecialRateOfDuty),
		display(rec.ExtraRateOfDuty),
		display(rec.QuotaQuantity),
		display(rec.AdditionalDuties),
	)
}

func display(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}
