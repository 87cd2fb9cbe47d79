package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifie une famille d'erreurs stable.
type Code string

const (
	// InvalidInputCode : entrée non tabulaire, mauvais type, client introuvable ou non ordonnable.
	InvalidInputCode Code = "INVALID_INPUT"
	// MissingColumnCode : colonne obligatoire absente d'une table.
	MissingColumnCode Code = "MISSING_COLUMN"
	// DataQualityCode : problème non bloquant sur un enregistrement.
	DataQualityCode Code = "DATA_QUALITY"
	// ConfigCode : configuration invalide.
	ConfigCode Code = "CONFIG"
)

// Error est l'erreur structurelle du moteur. Elle interrompt le calcul.
type Error struct {
	Code    Code
	Message string
	Table   string   // table concernée (MISSING_COLUMN)
	Columns []string // colonnes manquantes (MISSING_COLUMN)
	cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Columns) > 0 {
		msg += fmt.Sprintf(" (%s: %s)", e.Table, strings.Join(e.Columns, ", "))
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is compare par code, pour errors.Is(err, &errs.Error{Code: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// InvalidInput construit une erreur INVALID_INPUT.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Code: InvalidInputCode, Message: fmt.Sprintf(format, args...)}
}

// MissingColumns construit une erreur MISSING_COLUMN listant toutes les colonnes absentes.
func MissingColumns(table string, columns []string) *Error {
	return &Error{
		Code:    MissingColumnCode,
		Message: "missing required columns",
		Table:   table,
		Columns: columns,
	}
}

// Config construit une erreur CONFIG pour un champ.
func Config(field, message string) *Error {
	return &Error{Code: ConfigCode, Message: fmt.Sprintf("%s: %s", field, message)}
}

// Wrap attache une cause à une erreur existante.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// HasCode indique si err (ou une erreur qu'il enveloppe) porte ce code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Warning kinds.
const (
	UnparseableSKU  = "unparseable_sku"
	SizeOutOfRange  = "size_out_of_range"
	UnknownProduct  = "unknown_product"
	BadTimestamp    = "bad_timestamp"
	BadPrice        = "bad_price"
	EmptyCustomerID = "empty_customer_id"
)

// Warning est un problème de qualité de données absorbé localement (valeur neutre).
type Warning struct {
	Kind   string `json:"kind" yaml:"kind"`
	Record string `json:"record" yaml:"record"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (w Warning) String() string {
	if w.Detail == "" {
		return fmt.Sprintf("[%s] %s %s", DataQualityCode, w.Kind, w.Record)
	}
	return fmt.Sprintf("[%s] %s %s: %s", DataQualityCode, w.Kind, w.Record, w.Detail)
}

// CountByKind regroupe les avertissements par type.
func CountByKind(ws []Warning) map[string]int {
	out := make(map[string]int)
	for _, w := range ws {
		out[w.Kind]++
	}
	return out
}
