package domain

import "fmt"

// ValidationError indica un input rechazado antes de tocar el storage.
// Hint sugiere al caller cómo corregir la llamada.
type ValidationError struct {
	Field string
	Value any
	Hint  string
}

func (e *ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid %s: %v (%s)", e.Field, e.Value, e.Hint)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

// NotFoundError indica que el trade no existe o pertenece a otro usuario.
// Ambos casos son indistinguibles para el caller, a propósito.
type NotFoundError struct {
	TradeID int64
	UserID  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("trade #%d not found", e.TradeID)
}

// ConflictError indica que el trade ya estaba cerrado. Es recuperable: el
// gateway lo devuelve como warning, no como fallo.
type ConflictError struct {
	TradeID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("trade #%d is already closed", e.TradeID)
}

// StorageError envuelve un fallo inesperado del Ledger. A diferencia de los
// errores anteriores, aborta la llamada.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
