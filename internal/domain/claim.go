package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ClaimStatus is the audit state of a claim application.
type ClaimStatus int

const (
	ClaimPendingReview ClaimStatus = iota
	ClaimApproved
	ClaimRejected
	ClaimCancelled
)

var claimStatusLabels = map[ClaimStatus]string{
	ClaimPendingReview: "PendingReview",
	ClaimApproved:      "Approved",
	ClaimRejected:      "Rejected",
	ClaimCancelled:     "Cancelled",
}

func ParseClaimStatus(code int) (ClaimStatus, error) {
	s := ClaimStatus(code)
	if _, ok := claimStatusLabels[s]; !ok {
		return 0, fmt.Errorf("unknown claim status %d: %w", code, ErrValidation)
	}
	return s, nil
}

func (s ClaimStatus) String() string {
	if l, ok := claimStatusLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// Active claims block a second submission by the same applicant on the same item.
func (s ClaimStatus) Active() bool {
	return s != ClaimRejected && s != ClaimCancelled
}

// Audit trail remarks written by the system.
const (
	RemarkSuperseded           = "superseded by another accepted application"
	RemarkItemDeleted          = "item deleted"
	RemarkCancelledByApplicant = "cancelled by applicant"
)

// ClaimApplication is a user's request to be recognised as the rightful owner or finder of a posting.
type ClaimApplication struct {
	ClaimID         string      `json:"id" dynamodbav:"claim_id"`
	ItemID          string      `json:"item_id" dynamodbav:"item_id"`
	ItemType        ItemType    `json:"item_type" dynamodbav:"item_type"`
	ApplicantUserID string      `json:"applicant_user_id" dynamodbav:"applicant_user_id"`
	PublisherUserID string      `json:"publisher_user_id" dynamodbav:"publisher_user_id"`
	Description     string      `json:"description" dynamodbav:"description"`
	Status          ClaimStatus `json:"status" dynamodbav:"status"`
	AuditorUserID   string      `json:"auditor_user_id,omitempty" dynamodbav:"auditor_user_id,omitempty"`
	AuditedAt       *time.Time  `json:"audited_at,omitempty" dynamodbav:"audited_at,omitempty"`
	AuditRemark     string      `json:"audit_remark,omitempty" dynamodbav:"audit_remark,omitempty"`
	CreatedAt       time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// ClaimApproval is one winner-takes-all decision: the winning claim, the
// rivals to reject and the audit stamp shared by all of them.
type ClaimApproval struct {
	Claim      *ClaimApplication
	AuditorID  string
	Remark     string
	RivalIDs   []string
	// OpenClaims is the pending-claim count the approval was decided on,
	// winner included. The commit fails if the posting's counter moved.
	OpenClaims int
	At         time.Time
}

// AuditDecision is the outcome chosen by the auditor.
type AuditDecision string

const (
	DecisionApprove AuditDecision = "approve"
	DecisionReject  AuditDecision = "reject"
)

func (d *AuditDecision) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decision must be a string: %w", ErrValidation)
	}
	switch AuditDecision(raw) {
	case DecisionApprove, DecisionReject:
		*d = AuditDecision(raw)
		return nil
	}
	return fmt.Errorf("unknown decision %q: %w", raw, ErrValidation)
}

type SubmitClaimRequest struct {
	ItemID      string   `json:"item_id" validate:"required"`
	ItemType    ItemType `json:"item_type" validate:"oneof=0 1"`
	Description string   `json:"description" validate:"required,min=10,max=1000,nosensitive"`
}

type AuditClaimRequest struct {
	Decision AuditDecision `json:"decision" validate:"required"`
	Remark   string        `json:"remark" validate:"max=500"`
}

// ClaimFilter narrows claim listings. Zero values mean "any".
type ClaimFilter struct {
	ItemID      string
	ItemType    *ItemType
	ApplicantID string
	Status      *ClaimStatus
	Limit       int32
	Cursor      string
}
