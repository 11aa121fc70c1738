package eligibility

import (
	"testing"

	"fishfarm-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

// Every combination of factors maps to the first matching reason in priority
// order.
func TestAssignReasonPriority(t *testing.T) {
	bools := []bool{false, true}
	for _, has := range bools {
		for _, resolved := range bools {
			for _, active := range bools {
				for _, over := range bools {
					for _, age := range bools {
						f := Factors{HasLocation: has, Resolved: resolved, Active: active, OverCapacity: over, AgeEligible: age}
						got, ok := AssignReason(f)

						var want models.DisposalReasonCode
						switch {
						case !has:
							want = models.ReasonNoStorageLocation
						case !resolved:
							want = models.ReasonStorageNotFound
						case !active:
							want = models.ReasonStorageInactive
						case over:
							want = models.ReasonStorageOverCapacity
						case age:
							want = models.ReasonAge
						}

						if want == "" {
							assert.False(t, ok, "%+v", f)
							continue
						}
						assert.True(t, ok, "%+v", f)
						assert.Equal(t, want, got, "%+v", f)
						assert.Equal(t, ok, f.StorageUnhealthy() || f.AgeEligible, "%+v", f)
					}
				}
			}
		}
	}
}

func TestAssignReasonIsDeterministic(t *testing.T) {
	f := Factors{HasLocation: true, Resolved: true, Active: false, OverCapacity: true, AgeEligible: true}
	first, _ := AssignReason(f)
	for i := 0; i < 10; i++ {
		got, _ := AssignReason(f)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, models.ReasonStorageInactive, first)
}
