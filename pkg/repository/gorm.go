package repository

import (
	"context"
	"time"

	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sqlRepository struct {
	db *gorm.DB
}

func New(db *gorm.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if database.IsRecordNotFoundErr(err) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *sqlRepository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if database.IsRecordNotFoundErr(err) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *sqlRepository) CreateUser(ctx context.Context, email string) (*models.User, error) {
	user := models.User{Email: email}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(&user).Error
	if err != nil && !database.IsKeyConflictErr(err) {
		return nil, err
	}
	// DoNothing leaves the struct without an id when the row already existed;
	// re-read so both paths return the persisted row.
	if user.ID == 0 {
		return r.FindUserByEmail(ctx, email)
	}
	return &user, nil
}

func (r *sqlRepository) FindSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if database.IsRecordNotFoundErr(err) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *sqlRepository) CreateRequest(ctx context.Context, req *models.FileRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *sqlRepository) FindRequestByID(ctx context.Context, id string) (*models.FileRequest, error) {
	var req models.FileRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if database.IsRecordNotFoundErr(err) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *sqlRepository) FindRequestByLink(ctx context.Context, link string) (*models.FileRequest, error) {
	var req models.FileRequest
	if err := r.db.WithContext(ctx).Where("unique_link = ?", link).First(&req).Error; err != nil {
		if database.IsRecordNotFoundErr(err) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *sqlRepository) ListRequestsByOwner(ctx context.Context, userID int64) ([]models.FileRequest, error) {
	var reqs []models.FileRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *sqlRepository) ListActiveRequests(ctx context.Context) ([]models.FileRequest, error) {
	var reqs []models.FileRequest
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&reqs).Error
	return reqs, err
}

func (r *sqlRepository) ListPendingRequestsNearingDeadline(ctx context.Context, now time.Time, lead, period time.Duration) ([]models.FileRequest, error) {
	var reqs []models.FileRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.RequestStatusPending).
		Where("is_active = ?", true).
		Where("expires_at > ?", now).
		Where("deadline IS NULL OR deadline < ?", now.Add(lead)).
		Where("last_reminder_sent_at IS NULL OR last_reminder_sent_at <= ?", now.Add(-period)).
		Find(&reqs).Error
	return reqs, err
}

func (r *sqlRepository) ListOrphanedRequests(ctx context.Context) ([]models.FileRequest, error) {
	var reqs []models.FileRequest
	err := r.db.WithContext(ctx).
		Where("user_id IS NULL").
		Find(&reqs).Error
	return reqs, err
}

func (r *sqlRepository) CountRequestsSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FileRequest{}).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *sqlRepository) UpdateRequestActive(ctx context.Context, id string, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.FileRequest{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *sqlRepository) UpdateRequestStatus(ctx context.Context, id string, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.FileRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *sqlRepository) UpdateRequestLastReminder(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.FileRequest{}).
		Where("id = ?", id).
		Update("last_reminder_sent_at", at).Error
}

func (r *sqlRepository) UpdateRequestOwner(ctx context.Context, id string, userID int64) error {
	// The null-owner guard makes this a no-op when the creation path won the
	// race and set the owner first.
	return r.db.WithContext(ctx).
		Model(&models.FileRequest{}).
		Where("id = ?", id).
		Where("user_id IS NULL").
		Update("user_id", userID).Error
}

func (r *sqlRepository) CreateFile(ctx context.Context, file *models.UploadedFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *sqlRepository) ListFilesByRequest(ctx context.Context, requestID string) ([]models.UploadedFile, error) {
	var files []models.UploadedFile
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("uploaded_at ASC").
		Find(&files).Error
	return files, err
}

func (r *sqlRepository) ListOrphanedFiles(ctx context.Context) ([]models.UploadedFile, error) {
	sub := r.db.Model(&models.FileRequest{}).Select("id")
	var files []models.UploadedFile
	err := r.db.WithContext(ctx).
		Where("request_id IS NULL OR request_id NOT IN (?)", sub).
		Find(&files).Error
	return files, err
}

func (r *sqlRepository) SumFileSizesByOwner(ctx context.Context, userID int64) (int64, error) {
	var total int64
	sub := r.db.Model(&models.FileRequest{}).Select("id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Model(&models.UploadedFile{}).
		Where("request_id IN (?)", sub).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&total).Error
	return total, err
}
