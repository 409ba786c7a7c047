// Package domain holds the types shared by the normalizer, the resolver, the
// reconciler and the storage backends.
package domain

import "fmt"

// Kind identifies one of the four attribute dimensions.
type Kind int

const (
	Brand Kind = iota
	Model
	VehicleType
	FuelType
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case Brand:
		return "brand"
	case Model:
		return "model"
	case VehicleType:
		return "vehicle_type"
	case FuelType:
		return "fuel_type"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Dimension describes where a dimension lives in the store: its lookup
// table, the optional parent column (models are scoped to a brand), the
// free-text column on the vehicle table and the foreign key this pass fills.
type Dimension struct {
	Kind         Kind
	Table        string
	ParentColumn string
	TextColumn   string
	FKColumn     string
}

// HasParent reports whether names in this dimension are scoped to a parent id.
func (d Dimension) HasParent() bool { return d.ParentColumn != "" }

// String implements fmt.Stringer.
func (d Dimension) String() string { return d.Kind.String() }

var dimensions = [...]Dimension{
	{Kind: Brand, Table: "brands", TextColumn: "brand", FKColumn: "brand_id"},
	{Kind: Model, Table: "models", ParentColumn: "brand_id", TextColumn: "model", FKColumn: "model_id"},
	{Kind: VehicleType, Table: "car_types", TextColumn: "car_type", FKColumn: "vehicle_type_id"},
	{Kind: FuelType, Table: "fuel_types", TextColumn: "fuel_type", FKColumn: "fuel_type_id"},
}

// Dimensions returns the four dimensions in processing order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions[:])
	return out
}

// ByKind returns the descriptor for k. It panics on an unknown kind since
// kinds are a closed set.
func ByKind(k Kind) Dimension {
	if k < Brand || k > FuelType {
		panic(fmt.Sprintf("domain: unknown kind %d", int(k)))
	}
	return dimensions[k]
}
