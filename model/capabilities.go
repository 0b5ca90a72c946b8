package model

import "strings"

const (
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
	RoleAnalyst    = "analyst"
	RoleRespondent = "respondent"
)

type Capabilities struct {
	IsMasterAdmin    bool `json:"isMasterAdmin"`
	CanCreateForms   bool `json:"canCreateForms"`
	CanEditForms     bool `json:"canEditForms"`
	CanDeleteForms   bool `json:"canDeleteForms"`
	CanViewResponses bool `json:"canViewResponses"`
}

// CapabilitiesFor merges the capabilities of a comma separated role list,
// as carried by the "roles" token claim.
func CapabilitiesFor(roles string) (caps Capabilities) {
	for _, role := range strings.Split(roles, ",") {
		switch strings.TrimSpace(role) {
		case RoleAdmin:
			return Capabilities{
				IsMasterAdmin:    true,
				CanCreateForms:   true,
				CanEditForms:     true,
				CanDeleteForms:   true,
				CanViewResponses: true,
			}
		case RoleEditor:
			caps.CanCreateForms = true
			caps.CanEditForms = true
			caps.CanDeleteForms = true
			caps.CanViewResponses = true
		case RoleAnalyst:
			caps.CanViewResponses = true
		}
	}
	return
}
