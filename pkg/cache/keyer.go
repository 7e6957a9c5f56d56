package cache

// ResultKeyOpts carries the content hashes that make a node result key.
// Two nodes of the same kind share a key exactly when their parameters and
// their resolved input grids are byte-identical.
type ResultKeyOpts struct {
	ParamsHash string
	InputsHash string
}

// Keyer derives cache keys. Implementations must be deterministic: the
// same inputs always produce the same key.
type Keyer interface {
	// ResultKey generates a key for one node's evaluation result.
	ResultKey(kind string, opts ResultKeyOpts) string
}

// DefaultKeyer derives keys by hashing the key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// ResultKey generates a key of the form "result:<hex>".
func (k *DefaultKeyer) ResultKey(kind string, opts ResultKeyOpts) string {
	return hashKey("result", kind, opts.ParamsHash, opts.InputsHash)
}
