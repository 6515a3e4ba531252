package patient

import (
	"context"

	"github.com/clinic/dashboard/internal/platform/events"
)

// InvalidationHandler clears cached records when patient data changes
// elsewhere. An event without a patient id clears only the listing.
func InvalidationHandler(svc *Service) events.Handler {
	return func(_ context.Context, e events.Event) error {
		svc.ClearCache(e.PatientID)
		return nil
	}
}
