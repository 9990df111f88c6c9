package engine

import (
	"testing"

	"vitalguard/internal/models"
	"vitalguard/internal/vitals"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func TestPropertyStatusStaysInDomain(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("status is always one of the three levels and countdown never negative", prop.ForAll(
		func(ops []int, seed int64) bool {
			initial := stablePatient()
			initial.Medications = []models.Medication{
				{ID: "m1", Name: "Lisinopril", Time: "06:00"},
				{ID: "m2", Name: "Metformin", Time: "23:00"},
			}
			opts := testOptions()
			opts.DetectorEnabled = seed%2 == 0
			clock := &fixedClock{now: at(7, 0)}
			e := New(initial, opts, Deps{Notifier: &fakeNotifier{}, Source: vitals.NewGenerator(seed)}, zap.NewNop(), WithClock(clock.Now))
			defer e.Close()

			for _, op := range ops {
				switch op {
				case 0:
					_ = e.Trigger(models.ReasonCardiac)
				case 1:
					_ = e.Trigger(models.ReasonFall)
				case 2:
					_ = e.RunSystemTest()
				case 3:
					e.Resolve()
				case 4:
					e.TickVitals()
				case 5:
					e.TickCountdown()
				case 6:
					e.RunCompliance()
				}
				snap := e.Snapshot()
				if !snap.Status.Valid() {
					return false
				}
				if snap.Session != nil && snap.Session.Countdown < 0 {
					return false
				}
				if snap.Session != nil && !snap.Session.TestMode && snap.Status != models.AlertCritical {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 6)),
		gen.Int64Range(1, 1<<30),
	))

	props.TestingRun(t)
}
