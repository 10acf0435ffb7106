package utils

import "fmt"

// FriConfig holds the FRI protocol parameters.
type FriConfig struct {
	LogBlowupFactor         uint32
	LogLastLayerDegreeBound uint32
	NQueries                uint32
}

// PcsConfig holds the polynomial commitment scheme parameters: the FRI
// parameters plus the proof-of-work difficulty.
type PcsConfig struct {
	PowBits   uint32
	FriConfig FriConfig
}

// DefaultConfig returns 5 PoW bits, log blowup 1, log last layer degree
// bound 0 and 16 queries.
func DefaultConfig() PcsConfig {
	return PcsConfig{
		PowBits: 5,
		FriConfig: FriConfig{
			LogBlowupFactor:         1,
			LogLastLayerDegreeBound: 0,
			NQueries:                16,
		},
	}
}

// Validate checks the configuration before any work begins.
func (c FriConfig) Validate() error {
	if c.LogBlowupFactor == 0 {
		return fmt.Errorf("log blowup factor must be positive")
	}
	if c.LogBlowupFactor > 16 {
		return fmt.Errorf("log blowup factor %d out of range", c.LogBlowupFactor)
	}
	if c.LogLastLayerDegreeBound > 10 {
		return fmt.Errorf("log last layer degree bound %d out of range", c.LogLastLayerDegreeBound)
	}
	if c.NQueries == 0 {
		return fmt.Errorf("number of queries must be positive")
	}
	return nil
}

// Validate checks the configuration before any work begins.
func (c PcsConfig) Validate() error {
	if c.PowBits > 255 {
		return fmt.Errorf("pow bits %d out of range", c.PowBits)
	}
	return c.FriConfig.Validate()
}
