package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeNotImplemented     Code = "NOT_IMPLEMENTED"
)

// Validation errors.
const (
	CodeSQLRequired    Code = "SQL_REQUIRED"
	CodeSQLTooLong     Code = "SQL_TOO_LONG"
	CodeSchemaRequired Code = "SCHEMA_REQUIRED"
	CodeInvalidDBID    Code = "INVALID_DB_ID"
)

// Schema errors.
const (
	CodeSchemaNotFound   Code = "SCHEMA_NOT_FOUND"
	CodeSchemaLoadFailed Code = "SCHEMA_LOAD_FAILED"
)

// Evaluation errors.
const (
	CodeRecordSaveFailed Code = "RECORD_SAVE_FAILED"
	CodeExecForbidden    Code = "EXEC_FORBIDDEN"
)

// Health errors.
const (
	CodeDatabaseNotReady Code = "DATABASE_NOT_READY"
)
