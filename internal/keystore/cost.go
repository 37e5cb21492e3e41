package keystore

import "github.com/pkg/errors"

const (
	// StandardScryptN is the N parameter of the scrypt encryption algorithm,
	// using 256MB memory and taking approximately 1s CPU time on a modern
	// processor.
	StandardScryptN = 1 << 18

	// StandardScryptP is the P parameter of the scrypt encryption algorithm,
	// using 256MB memory and taking approximately 1s CPU time on a modern
	// processor.
	StandardScryptP = 1

	// LightScryptN is the N parameter of the scrypt encryption algorithm,
	// using 4MB memory and taking approximately 100ms CPU time on a modern
	// processor.
	LightScryptN = 1 << 12

	// LightScryptP is the P parameter of the scrypt encryption algorithm,
	// using 4MB memory and taking approximately 100ms CPU time on a modern
	// processor.
	LightScryptP = 6

	scryptR     = 8
	scryptDKLen = 32
)

// ScryptCost selects the scrypt cost parameters used when encrypting new
// keyfiles. The presets trade brute-force resistance for interactive
// responsiveness; the choice is always explicit, never downgraded silently.
type ScryptCost struct {
	N int
	P int
}

// StandardScrypt is the cost recommended for server-class hardware.
var StandardScrypt = ScryptCost{N: StandardScryptN, P: StandardScryptP}

// LightScrypt is the reduced cost for constrained or mobile environments.
var LightScrypt = ScryptCost{N: LightScryptN, P: LightScryptP}

// CustomScrypt builds a cost from caller-chosen parameters.
func CustomScrypt(n, p int) ScryptCost {
	return ScryptCost{N: n, P: p}
}

func (c ScryptCost) validate() error {
	if c.N <= 1 || c.N&(c.N-1) != 0 {
		return errors.Errorf("scrypt N must be a power of two greater than 1, got %d", c.N)
	}
	if c.P < 1 {
		return errors.Errorf("scrypt P must be positive, got %d", c.P)
	}
	return nil
}
