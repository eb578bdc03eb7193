package dynamo

// DynamoDB attribute names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID       = "user_id"
	fieldOwnerID      = "owner_id"
	fieldEmail        = "email"
	fieldPhone        = "phone"
	fieldPasswordHash = "password_hash"
	fieldUpdatedAt    = "updated_at"

	fieldContact     = "contact"
	fieldSecretCode  = "secret_code"
	fieldConfirmCode = "confirm_code"
	fieldConfirmed   = "confirmed"
	fieldSendCount   = "send_count"
	fieldCreatedAt   = "created_at"
)
