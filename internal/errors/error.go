// Package errors provides sentinel errors for cart operations.
package errors

import "errors"

var ErrInsufficientStock = errors.New("insufficient stock")
var ErrInvalidQuantity = errors.New("quantity must be at least 1")
var ErrItemNotFound = errors.New("item not found in cart")

var ErrPersistCart = errors.New("failed to persist cart")
var ErrLoadCart = errors.New("failed to load persisted cart")
var ErrRecordNotFound = errors.New("record not found")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

var ErrViewNotFound = errors.New("view not found")
var ErrUnauthenticated = errors.New("unauthenticated")
