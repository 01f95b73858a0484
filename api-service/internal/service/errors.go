package service

import (
	"fmt"
	"sort"
	"strings"

	"game-library-server/shared/models"

	"github.com/google/uuid"
)

// ValidationError reports business-rule violations on otherwise well-formed
// input. Fields maps the offending field name to a human-readable reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// SyncConflictError is returned by Trigger when a sync is already running
// and force is not set. OperationID identifies the running operation when
// it could be determined.
type SyncConflictError struct {
	OperationID *uuid.UUID
}

func (e *SyncConflictError) Error() string {
	return models.ErrSyncInProgress.Error()
}

func (e *SyncConflictError) Unwrap() error {
	return models.ErrSyncInProgress
}
