package models

// Page is one batch of records from the paginated search API, with
// cumulative counters for progress reporting.
type Page struct {
	Records []Certificate `json:"records"`
	// Number is the 1-based page index within this pagination run.
	Number int `json:"number"`
	// TotalRetrieved counts all records emitted so far, this page included.
	TotalRetrieved int `json:"total_retrieved"`
}
