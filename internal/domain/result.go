package domain

// ResultSet is the normalized output of one query execution: the records
// plus the count of raw records dropped by the degradation policy, kept
// for observability.
type ResultSet struct {
	Records []Record
	Dropped int
}
