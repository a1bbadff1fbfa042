package settings

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-storefront/internal/common"
)

// TaskRefreshReferenceData is the asynq task type the worker schedules to
// reload countries, regions and currencies.
const TaskRefreshReferenceData = "settings:refresh_reference_data"

// RefreshTaskHandler runs the same locked refresh as a PATCH with cached_at.
type RefreshTaskHandler struct {
	Svc *Service
}

// ProcessTask implements asynq.Handler.
func (h RefreshTaskHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	stamp := json.RawMessage(`true`)
	_, err := h.Svc.Update(ctx, Patch{CachedAt: common.Some(stamp)})
	return err
}
