package cpu

// Quirks selects between behaviours that differ across historical
// implementations. The zero value matches the reference interpreter.
type Quirks struct {
	// JumpVx makes BXNN jump to VX + XNN instead of V0 + XNN.
	JumpVx bool

	// LogicResetsVF clears VF after 8XY1, 8XY2 and 8XY3.
	LogicResetsVF bool

	// ShiftVy makes 8XY6 and 8XYE shift VY into VX instead of shifting
	// VX in place.
	ShiftVy bool

	// LoadStoreAdvancesI leaves I pointing past the last byte accessed
	// by FX55 and FX65.
	LoadStoreAdvancesI bool
}
