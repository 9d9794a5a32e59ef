package model

// Result is the outcome code of a mutating storage operation.
// The display layer maps each code to a user-facing message.
type Result string

const (
	// ResultCloud means the record was written to or removed from the remote store.
	ResultCloud Result = "cloud"

	// ResultLocal means the record was written to or removed from the local store.
	ResultLocal Result = "local"

	// ResultDuplicate means another record already uses the requested name.
	ResultDuplicate Result = "duplicate"

	// ResultLimit means the free-tier quota is exhausted.
	ResultLimit Result = "limit"

	// ResultNotFound means no record with the requested name exists.
	ResultNotFound Result = "not_found"

	// ResultError accompanies a non-nil error from a backend failure.
	ResultError Result = "error"
)
