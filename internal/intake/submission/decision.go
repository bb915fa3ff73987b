package submission

import (
	"strings"

	"form-coopecobana/internal/intake/notifier"
)

// Decision is the result of joining both notification outcomes.
type Decision struct {
	Success bool
	// Reason is the operator-facing text for the failure notice.
	Reason string
	// Details lists, in Spanish, which deliveries failed.
	Details string
}

// decide applies the success policy: the submission succeeds iff the
// administrator notice was delivered. The confirmant outcome never changes
// the result; it only contributes to the failure detail.
func decide(admin, confirmant notifier.Outcome) Decision {
	var reasons, details []string
	if !admin.Delivered {
		reasons = append(reasons, "administradores: "+admin.Reason())
		details = append(details, detailAdminFailed)
	}
	if !confirmant.Delivered {
		reasons = append(reasons, "confirmación: "+confirmant.Reason())
		details = append(details, detailConfirmationFailed)
	}
	return Decision{
		Success: admin.Delivered,
		Reason:  strings.Join(reasons, "\n"),
		Details: strings.Join(details, ", "),
	}
}
