package enum

type MovementType string

const (
	MovementTypeIncoming      MovementType = "incoming"
	MovementTypeOutgoing      MovementType = "outgoing"
	MovementTypeReserved      MovementType = "reserved"
	MovementTypeReleased      MovementType = "released"
	MovementTypeSold          MovementType = "sold"
	MovementTypeAdjustmentIn  MovementType = "adjustment_in"
	MovementTypeAdjustmentOut MovementType = "adjustment_out"
)
