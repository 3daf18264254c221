package entities

// TableDataset is the JSON document consumed by the data table loader.
// Row keys are expected to be a subset of Headers; that is a contract on
// the data source and is not checked here.
type TableDataset struct {
	Headers []string         `json:"Headers"`
	Data    []map[string]any `json:"Data"`
}
