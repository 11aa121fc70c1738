package eligibility

import "fishfarm-backend/internal/models"

// Factors are the facts the reason assignment looks at.
type Factors struct {
	HasLocation  bool
	Resolved     bool
	Active       bool
	OverCapacity bool
	AgeEligible  bool
}

// StorageUnhealthy is true when any storage condition makes the record eligible.
func (f Factors) StorageUnhealthy() bool {
	return f.storageMissingOrInactive() || f.OverCapacity
}

func (f Factors) storageMissingOrInactive() bool {
	return !f.HasLocation || !f.Resolved || !f.Active
}

// AssignReason returns the first matching reason in models.DisposalReasonCodes
// order. ok is false when nothing matches.
func AssignReason(f Factors) (code models.DisposalReasonCode, ok bool) {
	for _, c := range models.DisposalReasonCodes {
		if matches(c, f) {
			return c, true
		}
	}
	return "", false
}

func matches(c models.DisposalReasonCode, f Factors) bool {
	switch c {
	case models.ReasonNoStorageLocation:
		return !f.HasLocation
	case models.ReasonStorageNotFound:
		return f.HasLocation && !f.Resolved
	case models.ReasonStorageInactive:
		return f.HasLocation && f.Resolved && !f.Active
	case models.ReasonStorageOverCapacity:
		return f.HasLocation && f.Resolved && f.OverCapacity
	case models.ReasonAge:
		return f.AgeEligible
	case models.ReasonManual:
		return false
	}
	return false
}
