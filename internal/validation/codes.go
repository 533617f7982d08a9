package validation

// Stable machine codes reported by validators.
const (
	CodeTitleRequired         = "TITLE_REQUIRED"
	CodeTitleTooLong          = "TITLE_TOO_LONG"
	CodeDescriptionTooLong    = "DESCRIPTION_TOO_LONG"
	CodeInvalidPriority       = "INVALID_PRIORITY"
	CodeInvalidStatus         = "INVALID_STATUS"
	CodeAgentIDRequired       = "AGENT_ID_REQUIRED"
	CodeInvalidAgentID        = "INVALID_AGENT_ID"
	CodeAgentNotFound         = "AGENT_NOT_FOUND"
	CodeInvalidPage           = "INVALID_PAGE"
	CodeInvalidPageSize       = "INVALID_PAGE_SIZE"
	CodeInvalidStatusFilter   = "INVALID_STATUS_FILTER"
	CodeInvalidPriorityFilter = "INVALID_PRIORITY_FILTER"
	CodeSearchTooLong         = "SEARCH_TOO_LONG"
	CodeUserIDRequired        = "USER_ID_REQUIRED"
	CodeInvalidUserID         = "INVALID_USER_ID"
	CodeInvalidMetadata       = "INVALID_METADATA"
	CodeTextRequired          = "TEXT_REQUIRED"
	CodeTextTooLong           = "TEXT_TOO_LONG"
	CodeAttachmentURL         = "ATTACHMENT_URL_REQUIRED"
	CodeAttachmentName        = "ATTACHMENT_NAME_REQUIRED"
	CodeAttachmentSize        = "INVALID_ATTACHMENT_SIZE"
	CodeInvalidCursor         = "INVALID_CURSOR"
	CodeInvalidLimit          = "INVALID_LIMIT"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 4000
	maxMessageLength     = 4000
)
