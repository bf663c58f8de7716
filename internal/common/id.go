package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewResultID generates a result ID from the completion time plus a random suffix.
// Format: <RFC3339Nano UTC>-<8 hex chars>
func NewResultID(completedAt time.Time) string {
	return completedAt.UTC().Format(time.RFC3339Nano) + "-" + uuid.New().String()[:8]
}

// NewRuleID generates an extraction rule ID.
// Format: rule_<unix millis>_<4 hex chars>
func NewRuleID(createdAt time.Time) string {
	return fmt.Sprintf("rule_%d_%s", createdAt.UnixMilli(), uuid.New().String()[:4])
}
