// Package activity records an append-only log of account events
// (logins, registrations, password resets) in persistent storage.
package activity

//go:generate mockgen -source=repository.go -destination=../../../mocks/activity_repository_mock.go -package=mocks -mock_names=Repository=MockActivityRepository

import (
	"context"

	"github.com/dmitrijs2005/idkeeper/internal/server/models"
)

// Repository appends activity entries.
type Repository interface {
	// Append stores e, filling in ID and OccurredAt when they are zero.
	Append(ctx context.Context, e *models.Activity) error
}
