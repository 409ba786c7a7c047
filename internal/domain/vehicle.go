package domain

// Vehicle is one inventory row as seen by the reconciliation pass: the stable
// id plus the four free-text attributes. NULL text columns are read as "".
type Vehicle struct {
	ID    int64
	Brand string
	Model string
	Type  string
	Fuel  string
}

// Text returns the free-text value the vehicle carries for kind k.
func (v Vehicle) Text(k Kind) string {
	switch k {
	case Brand:
		return v.Brand
	case Model:
		return v.Model
	case VehicleType:
		return v.Type
	case FuelType:
		return v.Fuel
	}
	return ""
}

// LookupEntry is a row of one of the four lookup tables. ParentID is only set
// for models (the owning brand).
type LookupEntry struct {
	ID       int64
	Name     string
	ParentID int64
}

// Coverage summarizes how far the vehicle table has been backfilled.
type Coverage struct {
	Vehicles int64
	Missing  map[Kind]int64 // vehicles whose foreign key for the kind is NULL
	Lookups  map[Kind]int64 // rows per lookup table
}
