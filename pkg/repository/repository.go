// Package repository is the only gateway to persisted entities. The periodic
// reconcilers and the API services all go through it; each writer owns the
// narrow set of fields it updates.
package repository

import (
	"context"
	"time"

	"github.com/reqdrop/reqdrop/pkg/models"
)

type Repository interface {
	// Users
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	// CreateUser is a find-or-create keyed on the unique email index; it is
	// safe under concurrent callers racing on the same new address.
	CreateUser(ctx context.Context, email string) (*models.User, error)

	// Subscriptions
	FindSubscription(ctx context.Context, userID int64) (*models.Subscription, error)

	// Requests
	CreateRequest(ctx context.Context, req *models.FileRequest) error
	FindRequestByID(ctx context.Context, id string) (*models.FileRequest, error)
	FindRequestByLink(ctx context.Context, link string) (*models.FileRequest, error)
	ListRequestsByOwner(ctx context.Context, userID int64) ([]models.FileRequest, error)
	ListActiveRequests(ctx context.Context) ([]models.FileRequest, error)
	ListPendingRequestsNearingDeadline(ctx context.Context, now time.Time, lead, period time.Duration) ([]models.FileRequest, error)
	ListOrphanedRequests(ctx context.Context) ([]models.FileRequest, error)
	CountRequestsSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	UpdateRequestActive(ctx context.Context, id string, active bool) error
	UpdateRequestStatus(ctx context.Context, id string, status string) error
	UpdateRequestLastReminder(ctx context.Context, id string, at time.Time) error
	// UpdateRequestOwner only ever transitions a null owner to a value; an
	// already-owned request is left untouched.
	UpdateRequestOwner(ctx context.Context, id string, userID int64) error

	// Files
	CreateFile(ctx context.Context, file *models.UploadedFile) error
	ListFilesByRequest(ctx context.Context, requestID string) ([]models.UploadedFile, error)
	ListOrphanedFiles(ctx context.Context) ([]models.UploadedFile, error)
	SumFileSizesByOwner(ctx context.Context, userID int64) (int64, error)
}
