// Package roles maps externally supplied assignment labels onto the closed
// behavioral role set. This is a deterministic lookup, not a model: the
// engine never infers roles from motion.
package roles

import (
	"strings"

	"github.com/okian/rai/internal/domain/model"
)

// Assignment labels recognized from the upstream feed.
const (
	AssignmentCoverage = "coverage"
	AssignmentShadow   = "shadow"
	AssignmentTargeted = "targeted"
	AssignmentRoute    = "route"
	AssignmentRush     = "rush"
	AssignmentBlock    = "block"
)

// Classify maps an assignment label to a role. Unrecognized or missing
// labels map to unclassified, which selects conservative defaults
// everywhere downstream; this is a defined fallback, not an error.
func Classify(assignment string) model.Role {
	switch strings.ToLower(strings.TrimSpace(assignment)) {
	case AssignmentCoverage, AssignmentShadow:
		return model.RoleConstrainedReactive
	case AssignmentTargeted, AssignmentRoute:
		return model.RoleAgencyDriven
	case AssignmentRush, AssignmentBlock:
		return model.RolePhysicallyConstrained
	default:
		return model.RoleUnclassified
	}
}
