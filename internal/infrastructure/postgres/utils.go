package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/estoque-api/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// translateLockError convierte lock_not_available (55P03) y deadlock_detected (40P01) en ErrLockTimeout.
func translateLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "55P03" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", domain.ErrLockTimeout, pgErr.Message)
	}
	return err
}

// whereBuilder arma cláusulas AND con placeholders numerados en orden.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add agrega una condición; cond lleva un %d donde va el número de parámetro.
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(cond, len(w.args)))
}

// addIf agrega sólo si value no está vacío.
func (w *whereBuilder) addIf(cond, value string) {
	if value != "" {
		w.add(cond, value)
	}
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next número del siguiente placeholder (para LIMIT/OFFSET).
func (w *whereBuilder) next() int {
	return len(w.args) + 1
}
