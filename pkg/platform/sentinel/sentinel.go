package sentinel

import "errors"

// Sentinel errors for storage facts. The ledger store returns these (wrapped
// with context) so the settlement engine can translate them into domain codes:
// - ErrNotFound: house or lot row does not exist, or a foreign key points nowhere
// - ErrConflict: a uniqueness rule rejected the write (second purchase for a lot)
// - ErrUnavailable: the database aborted the transaction (serialization
//   failure, deadlock, busy) and nothing was applied
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
