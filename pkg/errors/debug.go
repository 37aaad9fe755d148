package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics is the loggable view of an error chain. Database fields are
// filled when a Postgres error from pgx or lib/pq sits anywhere in the chain.
type Diagnostics struct {
	Message    string
	Code       Code
	Chain      []string
	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
}

func Dump(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}

	d := Diagnostics{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.SQLState, d.Constraint, d.Table = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName
		d.Column, d.Detail = pgxErr.ColumnName, pgxErr.Detail
	case errors.As(err, &pqErr):
		d.SQLState, d.Constraint, d.Table = string(pqErr.Code), pqErr.Constraint, pqErr.Table
		d.Column, d.Detail = pqErr.Column, pqErr.Detail
	}
	return d
}

// Fields flattens the diagnostics for structured logging, omitting empty
// database attributes.
func (d Diagnostics) Fields() map[string]any {
	out := map[string]any{
		"error":       d.Message,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		out["error_code"] = string(d.Code)
	}
	for key, val := range map[string]string{
		"sql_state":     d.SQLState,
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_column":     d.Column,
		"db_detail":     d.Detail,
	} {
		if val != "" {
			out[key] = val
		}
	}
	return out
}
