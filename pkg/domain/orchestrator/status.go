package orchestrator

import (
	"strings"

	"github.com/tidesys/dagmirror/pkg/domain"
)

// MapForeignStatus maps the orchestrator's status vocabulary into ours.
//
// Total and case-insensitive: any unrecognized token degrades to
// domain.Unknown instead of becoming an error. The raw token is kept on the
// Run for audit, so nothing is lost by the degradation.
func MapForeignStatus(foreign string) domain.RunStatus {
	switch strings.ToUpper(strings.TrimSpace(foreign)) {
	case "QUEUED":
		return domain.Pending
	case "RUNNING":
		return domain.Running
	case "SUCCESS":
		return domain.Success
	case "FAILED":
		return domain.Failed
	case "UP_FOR_RETRY":
		return domain.Running
	case "UPSTREAM_FAILED":
		return domain.Failed
	case "SKIPPED":
		return domain.Skipped
	default:
		return domain.Unknown
	}
}
