package moneyman

import (
	"github.com/aarnott/moneyman/date"
	"github.com/google/uuid"
)

// TaxLot is one tracked acquisition of a security, the unit of cost-basis
// attribution. Exactly one lot exists per security-increasing entry of an
// acquisition-type action; transfers between tracked accounts preserve lot
// identity instead of creating new ones.
type TaxLot struct {
	ID               uuid.UUID
	CreatingEntryID  uuid.UUID
	AcquiredDate     date.Date
	Quantity         Quantity // units of the security acquired
	CostBasis        Quantity // total acquisition cost, in CostBasisAssetID units
	CostBasisAssetID uuid.UUID
}

func (l TaxLot) EntityID() uuid.UUID    { return l.ID }
func (l TaxLot) EntityKind() EntityKind { return KindTaxLot }

// UnitCost returns the cost basis of a single unit of the lot.
func (l TaxLot) UnitCost() Quantity {
	if l.Quantity.IsZero() {
		return Quantity{}
	}
	return l.CostBasis.Div(l.Quantity)
}

// TaxLotAssignment attributes part of a disposal entry to a specific lot.
// A disposal may draw from several lots and a lot may be consumed across
// several disposals. Pinned rows are manual overrides that automatic
// reassignment never touches.
type TaxLotAssignment struct {
	ID               uuid.UUID
	TaxLotID         uuid.UUID
	ConsumingEntryID uuid.UUID
	Amount           Quantity // positive units consumed from the lot
	Pinned           bool
}

func (a TaxLotAssignment) EntityID() uuid.UUID    { return a.ID }
func (a TaxLotAssignment) EntityKind() EntityKind { return KindAssignment }
