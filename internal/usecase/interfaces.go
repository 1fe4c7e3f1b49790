package usecase

// Fingerprinter computes content fingerprints. Sum fingerprints one
// payload; SumAggregate folds an ordered list of member fingerprints
// into a container aggregate.
type Fingerprinter interface {
	Sum(data []byte) (string, error)
	SumAggregate(members []string) (string, error)
}
