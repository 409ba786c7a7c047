package sqlstore

import (
	"fmt"
	"strings"

	"carsync/internal/domain"
	"carsync/internal/storage"
)

// nameColumn is the text column of every lookup table.
const nameColumn = "name"

// Queries renders the statements of the Store contract for one dialect and
// one vehicle table.
type Queries struct {
	d            Dialect
	vehicleTable string
}

// NewQueries validates vehicleTable and binds it to d.
func NewQueries(d Dialect, vehicleTable string) (Queries, error) {
	if err := storage.ValidateIdent(vehicleTable); err != nil {
		return Queries{}, err
	}
	return Queries{d: d, vehicleTable: vehicleTable}, nil
}

// Dialect returns the dialect the queries were built for.
func (q Queries) Dialect() Dialect { return q.d }

func (q Queries) ph(i int) string { return q.d.Placeholder(i) }

// FindByName selects the lowest id matching name (and the parent for scoped
// dimensions). Args: name[, parentID].
func (q Queries) FindByName(dim domain.Dimension) string {
	where := fmt.Sprintf("%s = %s", q.d.Ident(nameColumn), q.ph(1))
	if dim.HasParent() {
		where += fmt.Sprintf(" AND %s = %s", q.d.Ident(dim.ParentColumn), q.ph(2))
	}
	if q.d.Top {
		return fmt.Sprintf("SELECT TOP 1 %s FROM %s WHERE %s ORDER BY %s",
			q.d.Ident("id"), q.d.FQN(dim.Table), where, q.d.Ident("id"))
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT 1",
		q.d.Ident("id"), q.d.FQN(dim.Table), where, q.d.Ident("id"))
}

// Insert creates a lookup row. Args: name[, parentID].
func (q Queries) Insert(dim domain.Dimension) string {
	cols := []string{q.d.Ident(nameColumn)}
	vals := []string{q.ph(1)}
	if dim.HasParent() {
		cols = append(cols, q.d.Ident(dim.ParentColumn))
		vals = append(vals, q.ph(2))
	}
	table := q.d.FQN(dim.Table)
	colList := strings.Join(cols, ", ")
	valList := strings.Join(vals, ", ")

	switch q.d.IDs {
	case OutputInserted:
		return fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.%s VALUES (%s)",
			table, colList, q.d.Ident("id"), valList)
	case Returning:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			table, colList, valList, q.d.Ident("id"))
	default:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, colList, valList)
	}
}

// InsertArgs returns the bind arguments for Insert and FindByName.
func InsertArgs(dim domain.Dimension, name string, parentID int64) []any {
	if dim.HasParent() {
		return []any{name, parentID}
	}
	return []any{name}
}

// ListLookups selects id, name and the parent id (0 when unscoped) ordered by id.
func (q Queries) ListLookups(dim domain.Dimension) string {
	parent := "0"
	if dim.HasParent() {
		parent = q.d.Ident(dim.ParentColumn)
	}
	return fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY %s",
		q.d.Ident("id"), q.d.Ident(nameColumn), parent, q.d.FQN(dim.Table), q.d.Ident("id"))
}

// ListVehicles selects id and the four text columns, NULLs as ”, ordered by id.
func (q Queries) ListVehicles() string {
	cols := []string{q.d.Ident("id")}
	for _, dim := range domain.Dimensions() {
		c := q.d.Ident(dim.TextColumn)
		cols = append(cols, fmt.Sprintf("COALESCE(%s, '') AS %s", c, c))
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), q.d.FQN(q.vehicleTable), q.d.Ident("id"))
}

// UpdateField sets one foreign key. Args: value, vehicleID.
func (q Queries) UpdateField(dim domain.Dimension) string {
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		q.d.FQN(q.vehicleTable), q.d.Ident(dim.FKColumn), q.ph(1), q.d.Ident("id"), q.ph(2))
}

// CountVehicles counts every vehicle row.
func (q Queries) CountVehicles() string {
	return "SELECT COUNT(*) FROM " + q.d.FQN(q.vehicleTable)
}

// CountMissing counts vehicles whose foreign key for dim is still NULL.
func (q Queries) CountMissing(dim domain.Dimension) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL",
		q.d.FQN(q.vehicleTable), q.d.Ident(dim.FKColumn))
}

// CountLookups counts the rows of dim's table.
func (q Queries) CountLookups(dim domain.Dimension) string {
	return "SELECT COUNT(*) FROM " + q.d.FQN(dim.Table)
}

// Schema returns the DDL creating the lookup tables and the vehicle table,
// in dependency order. Lookup names are unique (per brand for models).
func (q Queries) Schema() []string {
	d := q.d
	id := d.Ident("id")
	name := d.Ident(nameColumn)
	brands := domain.ByKind(domain.Brand)

	var out []string
	for _, dim := range domain.Dimensions() {
		var cols string
		if dim.HasParent() {
			parent := d.Ident(dim.ParentColumn)
			cols = fmt.Sprintf("%s %s, %s %s NOT NULL REFERENCES %s(%s), %s %s NOT NULL, UNIQUE (%s, %s)",
				id, d.IDType, parent, d.RefType, d.FQN(brands.Table), id, name, d.NameType, parent, name)
		} else {
			cols = fmt.Sprintf("%s %s, %s %s NOT NULL UNIQUE", id, d.IDType, name, d.NameType)
		}
		out = append(out, d.createTable(dim.Table, cols))
	}

	vcols := []string{fmt.Sprintf("%s %s", id, d.IDType)}
	for _, dim := range domain.Dimensions() {
		vcols = append(vcols, fmt.Sprintf("%s %s NULL", d.Ident(dim.TextColumn), d.NameType))
	}
	for _, dim := range domain.Dimensions() {
		vcols = append(vcols, fmt.Sprintf("%s %s NULL REFERENCES %s(%s)",
			d.Ident(dim.FKColumn), d.RefType, d.FQN(dim.Table), id))
	}
	out = append(out, d.createTable(q.vehicleTable, strings.Join(vcols, ", ")))
	return out
}
