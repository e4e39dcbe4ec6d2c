package debtorimport

// RowError is a per-row failure reported in an import result.
type RowError struct {
	Row        int    `json:"row"`
	Unit       string `json:"unit"`
	Error      string `json:"error"`
	RolledBack bool   `json:"rolledBack,omitempty"`
}

// Debug carries diagnostic counters for a run.
type Debug struct {
	UnitsFetched int `json:"unitsFetched"`
	MapSize      int `json:"mapSize"`
	BatchSize    int `json:"batchSize"`
}

// ImportResult is the run-level outcome returned to the caller.
type ImportResult struct {
	RunID            string     `json:"runId"`
	Success          bool       `json:"success"`
	Imported         int        `json:"imported"`
	Failed           int        `json:"failed"`
	Skipped          int        `json:"skipped"`
	Errors           []RowError `json:"errors"`
	ValidationErrors []string   `json:"validationErrors,omitempty"`
	UnmappedUnits    []string   `json:"unmappedUnits,omitempty"`
	BillIDs          []string   `json:"billIds,omitempty"`
	Debug            Debug      `json:"debug"`
}

// ValidationReport is the pre-mutation outcome.
type ValidationReport struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors"`
	UnmappedUnits []string `json:"unmappedUnits"`
}
