package dynamo

// DynamoDB attribute and index names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldStatus           = "status"
	fieldUpdatedAt        = "updated_at"
	fieldCreatedAt        = "created_at"
	fieldEnable           = "enable"
	fieldIsRead           = "is_read"
	fieldAuditorUserID    = "auditor_user_id"
	fieldAuditedAt        = "audited_at"
	fieldAuditRemark      = "audit_remark"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldAccountStatus    = "account_status"
	fieldRole             = "role"
	fieldOpenClaims       = "open_claims"
	fieldRevokedAt        = "revoked_at"
	fieldRevokedReason    = "revoked_reason"
)

const (
	indexStatusCreated    = "status-created_at-index"
	indexPublisherCreated = "publisher_user_id-created_at-index"
	indexItemCreated      = "item_id-created_at-index"
	indexApplicantCreated = "applicant_user_id-created_at-index"
	indexUserCreated      = "user_id-created_at-index"
	indexUsername         = "username-index"
	indexName             = "name-index"
	indexUserID           = "user_id-index"
	indexRefreshToken     = "refresh_token-index"
)
