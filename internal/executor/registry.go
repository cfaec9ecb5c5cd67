package executor

import (
	"net/mail"
	"strings"

	"github.com/codeready-toolchain/aegis/internal/domain"
)

// Risk tiers. High-tier tools refuse to dispatch without a pre-existing
// approval record for the incident, regardless of governance mode.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

func isInstanceTarget(target string) bool {
	return strings.HasPrefix(target, "i-") && len(target) > len("i-")
}

func isEmailTarget(target string) bool {
	_, err := mail.ParseAddress(target)
	return err == nil
}

// Registry is the closed set of remediation tools AEGIS is permitted to
// dispatch. It is a literal map — there is no runtime registration path,
// by design: every action AEGIS can take is auditable from this file alone.
// Entries are not checked at startup; a tool's target is validated by
// ValidateTarget at dispatch time.
var Registry = map[string]domain.RemediationSpec{
	"restart_iis": {
		Tool:            "restart_iis",
		CommandTemplate: "restart-service --host={{.Target}} --service=iis",
		RiskTier:        RiskLow,
		ValidateTarget:  isInstanceTarget,
	},
	"clear_cache": {
		Tool:            "clear_cache",
		CommandTemplate: "clear-cache --host={{.Target}}",
		RiskTier:        RiskLow,
		ValidateTarget:  isInstanceTarget,
	},
	"unlock_account": {
		Tool:            "unlock_account",
		CommandTemplate: "unlock-account --user={{.Target}}",
		RiskTier:        RiskLow,
		ValidateTarget:  isEmailTarget,
	},
	"reset_network_interface": {
		Tool:                     "reset_network_interface",
		CommandTemplate:          "reset-nic --host={{.Target}}",
		RiskTier:                 RiskMedium,
		StandardChangeTemplateID: "SCT-NET-001",
		ValidateTarget:           isInstanceTarget,
	},
	"restart_database": {
		Tool:                     "restart_database",
		CommandTemplate:          "restart-db --host={{.Target}}",
		RiskTier:                 RiskHigh,
		StandardChangeTemplateID: "SCT-DB-001",
		ValidateTarget:           isInstanceTarget,
	},
}

// Lookup finds a remediation spec by tool name.
func Lookup(tool string) (domain.RemediationSpec, bool) {
	spec, ok := Registry[tool]
	return spec, ok
}
