package run

import (
	"fmt"

	"github.com/flarebyte/ampscribe/internal/config"
)

// PreparedActionStages returns the deterministic stage order used for an action.
func PreparedActionStages(action string) ([]string, error) {
	switch action {
	case config.ActionSanitize, config.ActionValidate:
		return []string{
			"discover-documents",
			"sanitize-documents",
			"write-output",
		}, nil
	default:
		return nil, fmt.Errorf("invalid action")
	}
}
