package core

// error_messages.go maps technical errors to the notices shown to catalogue
// staff. Each notice carries a code that support can look up here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the export exceeds the upload limit
//	          Patterns: "file too large", "request body too large"
//
//	FILE003 - Encoding error: the export could not be decoded
//	          Patterns: "encoding error"
//
//	FILE004 - No file: no export was selected
//	          Patterns: "no file provided"
//
// # Record Errors (REC001-REC099)
//
//	REC001 - No records: the export has no "MFN:" records
//	         Patterns: "no valid records found"
//
//	REC002 - Identifier without digits: an MFN cannot be ordered
//	         Patterns: "identifier has no digits"
//
//	REC003 - Cell too long: a value exceeds the 32767 characters of a cell
//	         Patterns: "too long for a spreadsheet cell"
//
// # Conversion Errors (CNV001-CNV099)
//
//	CNV001 - Listing not found: the requested spreadsheet is gone
//	         Patterns: "listing not found"
//
//	CNV002 - System busy: too many conversions running
//	         Patterns: "too many concurrent conversions"
//
//	CNV003 - Request cancelled
//	         Patterns: "context canceled"
//
//	CNV004 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default (ERR000)
//
// Fallback when nothing matches; the original error is in the server log.
//
// Errors wrapping one of the package sentinels are classified with
// errors.Is first. Otherwise patterns are matched case-insensitively with
// strings.Contains, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-facing error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var (
	msgFileTooLarge = UserMessage{
		Message: "El archivo supera el tamaño máximo permitido",
		Action:  "Divida la exportación en archivos más pequeños",
		Code:    "FILE001",
	}
	msgDecode = UserMessage{
		Message: "No se pudo leer el texto del archivo",
		Action:  "Guarde la exportación en UTF-8 o Latin-1",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "Debes seleccionar un archivo .txt",
		Action:  "Seleccione la exportación del catálogo y vuelva a intentarlo",
		Code:    "FILE004",
	}
	msgNoRecords = UserMessage{
		Message: "No se encontraron registros válidos",
		Action:  "Verifique que cada registro comience con una línea MFN:",
		Code:    "REC001",
	}
	msgNoDigits = UserMessage{
		Message: "Hay un MFN sin dígitos y no se puede ordenar",
		Action:  "Corrija el MFN indicado en la exportación",
		Code:    "REC002",
	}
	msgCellTooLong = UserMessage{
		Message: "Un campo supera los 32767 caracteres que admite una celda de Excel",
		Action:  "Acorte el campo indicado en la exportación",
		Code:    "REC003",
	}
	msgOutputNotFound = UserMessage{
		Message: "La lista solicitada ya no existe",
		Action:  "Vuelva a generar la lista desde la exportación",
		Code:    "CNV001",
	}
	msgBusy = UserMessage{
		Message: "El sistema está procesando otras conversiones",
		Action:  "Espere un momento y vuelva a intentarlo",
		Code:    "CNV002",
	}
	msgCanceled = UserMessage{
		Message: "La solicitud fue cancelada",
		Action:  "Vuelva a intentarlo",
		Code:    "CNV003",
	}
	msgDeadline = UserMessage{
		Message: "La conversión tardó demasiado",
		Action:  "Pruebe con un archivo más pequeño",
		Code:    "CNV004",
	}
	msgRateLimited = UserMessage{
		Message: "Demasiadas solicitudes",
		Action:  "Espere un momento antes de volver a intentarlo",
		Code:    "RATE001",
	}
)

// errorSentinels are checked with errors.Is, in order, before any text
// matching.
var errorSentinels = []struct {
	err error
	msg UserMessage
}{
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrDecode, msgDecode},
	{ErrNoFile, msgNoFile},
	{ErrNoRecords, msgNoRecords},
	{ErrNoDigits, msgNoDigits},
	{ErrCellTooLong, msgCellTooLong},
	{ErrOutputNotFound, msgOutputNotFound},
	{ErrTooManyConversions, msgBusy},
	{context.Canceled, msgCanceled},
	{context.DeadlineExceeded, msgDeadline},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns cover errors that arrive without a sentinel in their
// chain, such as those of net/http or the web layer.
var errorPatterns = []errorPattern{
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "encoding error", msg: msgDecode},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "no valid records found", msg: msgNoRecords},
	{pattern: "identifier has no digits", msg: msgNoDigits},
	{pattern: "too long for a spreadsheet cell", msg: msgCellTooLong},
	{pattern: "listing not found", msg: msgOutputNotFound},
	{pattern: "too many concurrent conversions", msg: msgBusy},
	{pattern: "context canceled", msg: msgCanceled},
	{pattern: "context deadline exceeded", msg: msgDeadline},
	{pattern: "rate limit", msg: msgRateLimited},
}

var defaultMessage = UserMessage{
	Message: "Ocurrió un error inesperado",
	Action:  "Vuelva a intentarlo o contacte a soporte",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. Sentinels in the
// error chain win over text patterns, since error text can quote
// identifiers from the upload. Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range errorSentinels {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// FormatUserError renders err as "Message (Código: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Código: %s). %s", msg.Message, msg.Code, msg.Action)
}
