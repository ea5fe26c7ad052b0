package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error

	// Rule store errors
	CodeRuleTooLong      = "E_RULE_TOO_LONG"     // the rule exceeds the maximum length.
	CodeRuleInvalid      = "E_RULE_INVALID"      // the rule failed admission policy (empty, NUL, newline).
	CodeCapacityExceeded = "E_CAPACITY_EXCEEDED" // the store is at its configured rule capacity.

	// Audit errors
	CodeAuditUnavailable = "E_AUDIT_UNAVAILABLE"  // the audit log is not configured.
	CodeAuditQueryFailed = "E_AUDIT_QUERY_FAILED" // a failure querying the audit log.
)
