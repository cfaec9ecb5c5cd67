package httpapi

import "github.com/codeready-toolchain/aegis/internal/domain"

// WebhookRequest is the inbound ITSM ticket-creation payload.
type WebhookRequest struct {
	Number           string `json:"number" validate:"required"`
	ShortDescription string `json:"short_description" validate:"required"`
	Description      string `json:"description"`
	CallerID         string `json:"caller_id"`
	Category         string `json:"category"`
	Subcategory      string `json:"subcategory"`
	Priority         string `json:"priority" validate:"omitempty,oneof=1 2 3 4 5"`
	CMDBCI           string `json:"cmdb_ci"`
	AssignmentGroup  string `json:"assignment_group"`
}

func (r WebhookRequest) toIncident() domain.Incident {
	priority := r.Priority
	if priority == "" {
		priority = domain.DefaultPriority
	}
	return domain.Incident{
		Number:           r.Number,
		ShortDescription: r.ShortDescription,
		Description:      r.Description,
		CallerID:         r.CallerID,
		Category:         r.Category,
		Subcategory:      r.Subcategory,
		Priority:         priority,
		CMDBCI:           r.CMDBCI,
		AssignmentGroup:  r.AssignmentGroup,
	}
}

// ServiceNowWebhookRequest is the vendor-shaped ServiceNow incident payload,
// mapped onto the same Incident the native webhook produces.
type ServiceNowWebhookRequest struct {
	SysID            string `json:"sys_id" validate:"required"`
	Number           string `json:"number" validate:"required"`
	ShortDescription string `json:"short_description" validate:"required"`
	Description      string `json:"description"`
	CallerID         struct {
		Value string `json:"value"`
	} `json:"caller_id"`
	Category        string `json:"category"`
	Subcategory     string `json:"subcategory"`
	Priority        string `json:"priority"`
	CMDBCI          struct {
		Value string `json:"value"`
	} `json:"cmdb_ci"`
	AssignmentGroup struct {
		Value string `json:"value"`
	} `json:"assignment_group"`
}

func (r ServiceNowWebhookRequest) toIncident() domain.Incident {
	number := r.Number
	if number == "" {
		number = r.SysID
	}
	priority := r.Priority
	if priority == "" {
		priority = domain.DefaultPriority
	}
	return domain.Incident{
		Number:           number,
		ShortDescription: r.ShortDescription,
		Description:      r.Description,
		CallerID:         r.CallerID.Value,
		Category:         r.Category,
		Subcategory:      r.Subcategory,
		Priority:         priority,
		CMDBCI:           r.CMDBCI.Value,
		AssignmentGroup:  r.AssignmentGroup.Value,
	}
}

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// KillSwitchRequest toggles the governance kill switch.
type KillSwitchRequest struct {
	Enabled bool `json:"enabled"`
}

// ModeRequest sets the governance execution mode.
type ModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=auto assist monitor"`
}

// ThresholdsRequest sets the three named governance thresholds. Any field
// left at zero is ignored — use GET /governance/thresholds first and POST
// only the ones you mean to change.
type ThresholdsRequest struct {
	Assign     int `json:"assign" validate:"omitempty,gte=0,lte=100"`
	Categorize int `json:"categorize" validate:"omitempty,gte=0,lte=100"`
	Remediate  int `json:"remediate" validate:"omitempty,gte=0,lte=100"`
}

// ApprovalRequest records an approve/reject decision on a gated action, for
// the incident named in the request path.
type ApprovalRequest struct {
	Approver string `json:"approver" validate:"required"`
	Reason   string `json:"reason"`
}

// FeedbackRequest records operator feedback on a closed triage job.
type FeedbackRequest struct {
	ThumbsUp bool   `json:"thumbs_up"`
	Reviewer string `json:"reviewer" validate:"required"`
}
