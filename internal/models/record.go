package models

// TariffRecord is one line item of the Harmonized Tariff Schedule.
// Every column except indent is nullable in the source table, so string
// fields are pointers; nil means the column was NULL.
type TariffRecord struct {
	HTSNumber         *string `json:"htsnumber"`
	Indent            *int    `json:"indent"`
	Description       *string `json:"description"`
	UnitOfQuantity    *string `json:"unitofquantity"`
	GeneralRateOfDuty *string `json:"generalrateofduty"`
	SpecialRateOfDuty *string `json:"specialrateofduty"`
	ExtraRateOfDuty   *string `json:"extrarateofduty"`
	QuotaQuantity     *string `json:"quotaquantity"`
	AdditionalDuties  *string `json:"additionalduties"`
}

// SearchResult is a tariff record returned by similarity search together
// with its distance from the query embedding (smaller is closer).
type SearchResult struct {
	Record   TariffRecord `json:"record"`
	Distance float64      `json:"distance"`
}

// ExactMatch is one row returned by the substring HTS-number lookup.
type ExactMatch struct {
	HTSNumber         string  `json:"htsnumber"`
	Description       *string `json:"description"`
	GeneralRateOfDuty *string `json:"generalrateofduty"`
}

// TableStats summarizes the state of the tariff table.
type TableStats struct {
	TotalRows    int64  `json:"total_rows"`
	EmbeddedRows int64  `json:"embedded_rows"`
	ModelVersion string `json:"model_version"`
	Dimension    int    `json:"dimension"`
}
