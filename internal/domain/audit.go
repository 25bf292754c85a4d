package domain

// AuditEntry is one append-only record of a terminal decision. Writing
// it must never alter the decision it describes.
type AuditEntry struct {
	UserID   string         `json:"user_id"`
	Query    string         `json:"query_text"`
	Status   DecisionStatus `json:"status"`
	Response string         `json:"response,omitempty"`
}
