package apierr

import (
	"fmt"
	"net/http"
)

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

func NotImplemented(feature string) *Error {
	return New(CodeNotImplemented, http.StatusNotImplemented, feature+" is not implemented yet")
}

// --- Validation ---

func SQLRequired(field string) *Error {
	return New(CodeSQLRequired, http.StatusBadRequest, field+" is required").WithDetail("field", field)
}

func SQLTooLong(field string, limit int) *Error {
	return New(CodeSQLTooLong, http.StatusBadRequest, fmt.Sprintf("%s must be %d bytes or fewer", field, limit)).
		WithDetail("field", field)
}

func SchemaRequired() *Error {
	return New(CodeSchemaRequired, http.StatusBadRequest, "Either schema or db_id is required")
}

func InvalidDBID() *Error {
	return New(CodeInvalidDBID, http.StatusBadRequest, "db_id must be 1-63 chars of lowercase letters, digits and underscores, not starting with a digit")
}

// --- Schema ---

func SchemaNotFound(dbID string) *Error {
	return New(CodeSchemaNotFound, http.StatusNotFound, "Schema not found").WithDetail("db_id", dbID)
}

func SchemaLoadFailed(cause error) *Error {
	return Wrap(CodeSchemaLoadFailed, http.StatusInternalServerError, "Failed to load schema", cause)
}

// --- Evaluation ---

func RecordSaveFailed(cause error) *Error {
	return Wrap(CodeRecordSaveFailed, http.StatusInternalServerError, "Failed to save evaluation record", cause)
}

func ExecForbidden() *Error {
	return New(CodeExecForbidden, http.StatusForbidden, "exec_match requires the sqlshape:exec scope")
}

// --- Health ---

func DatabaseNotReady() *Error {
	return New(CodeDatabaseNotReady, http.StatusServiceUnavailable, "Database not ready")
}
