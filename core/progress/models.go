package progress

import (
	"encoding/json"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lab/core"
)

var (
	trackedComponentTag  = "tracked_component"
	trackedComponentText = "unknown component"
)

// SaveCheckpoint is the request to save one component's checkpoint.
type SaveCheckpoint struct {
	ActivityID  string          `json:"activity_id" validate:"required,slug"`
	ComponentID string          `json:"component_id" validate:"required,tracked_component"`
	Progress    int             `json:"progress" validate:"min=0,max=100"`
	Completed   bool            `json:"completed"`
	Snapshot    json.RawMessage `json:"snapshot,omitempty"`
}

func (sc SaveCheckpoint) Validate(validate *validator.Validate, translator ut.Translator) error {
	return core.TranslateErrors(validate.Struct(sc), translator)
}

// CheckpointsResponse is what the API returns for an activity.
type CheckpointsResponse struct {
	Checkpoints     CheckpointSet `json:"checkpoints"`
	OverallProgress float64       `json:"overall_progress"`
}

func NewCheckpointsResponse(set CheckpointSet) CheckpointsResponse {
	return CheckpointsResponse{Checkpoints: set, OverallProgress: set.OverallProgress()}
}

// InitValidators registers the checkpoint validators for the tracked components.
func InitValidators(validate *validator.Validate, translator ut.Translator, tracked []string) {
	if len(tracked) == 0 {
		tracked = DefaultComponents
	}
	known := make(map[string]bool, len(tracked))
	for _, id := range tracked {
		known[id] = true
	}
	_ = validate.RegisterValidation(trackedComponentTag, func(fl validator.FieldLevel) bool {
		return known[fl.Field().String()]
	})
	core.RegisterCustomTranslation(validate, translator, trackedComponentTag, trackedComponentText)
}
