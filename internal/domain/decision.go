package domain

// DecisionStatus is the terminal outcome of the access pipeline.
type DecisionStatus string

const (
	// StatusApproved grants access.
	StatusApproved DecisionStatus = "approved"
	// StatusDenied refuses access with a user-visible reason.
	StatusDenied DecisionStatus = "denied"
	// StatusError signals an unrecoverable collaborator failure.
	StatusError DecisionStatus = "error"
)

// Decision is the immutable output of the access pipeline. Only approved
// decisions may carry documents; the constructors enforce this.
type Decision struct {
	Status           DecisionStatus
	Reason           string
	AllowedDocuments []CandidateDocument
}

// Approved builds an approval decision.
func Approved(reason string) Decision {
	return Decision{Status: StatusApproved, Reason: reason}
}

// ApprovedWithDocuments builds an approval carrying the documents that
// survived filtering, in their retrieval order.
func ApprovedWithDocuments(reason string, docs []CandidateDocument) Decision {
	return Decision{Status: StatusApproved, Reason: reason, AllowedDocuments: docs}
}

// Denied builds a denial decision. Denials never carry documents.
func Denied(reason string) Decision {
	return Decision{Status: StatusDenied, Reason: reason}
}

// Errored builds an error decision. Errors never carry documents.
func Errored(reason string) Decision {
	return Decision{Status: StatusError, Reason: reason}
}

// IsApproved reports whether the decision grants access.
func (d Decision) IsApproved() bool {
	return d.Status == StatusApproved
}
