package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reqdrop/reqdrop/pkg/mailer"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"gorm.io/gorm"
)

// flakySubscriptions fails subscription lookups, for the owner in failFor or
// for everyone when failFor is 0. Everything else hits the real repository.
type flakySubscriptions struct {
	repository.Repository
	failFor int64
	err     error
}

func (f *flakySubscriptions) FindSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	if f.failFor == 0 || f.failFor == userID {
		return nil, f.err
	}
	return f.Repository.FindSubscription(ctx, userID)
}

type sentMail struct {
	To      string
	Kind    mailer.Kind
	Payload mailer.Payload
}

// recordingMailer captures sends; FailWith makes every send fail.
type recordingMailer struct {
	mu       sync.Mutex
	Sent     []sentMail
	FailWith error
}

func (m *recordingMailer) Send(_ context.Context, to string, kind mailer.Kind, payload mailer.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, sentMail{To: to, Kind: kind, Payload: payload})
	return nil
}

func (m *recordingMailer) sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.Sent...)
}

func seedUser(db *gorm.DB, email string) *models.User {
	user := &models.User{Email: email}
	db.Create(user)
	return user
}

func seedSubscription(db *gorm.DB, userID int64, tierName string) *models.Subscription {
	sub := &models.Subscription{UserID: userID, Tier: tierName, IsActive: true}
	db.Create(sub)
	return sub
}

func seedRequest(db *gorm.DB, userID *int64, createdAt time.Time, mutate ...func(*models.FileRequest)) *models.FileRequest {
	req := &models.FileRequest{
		ID:             uuid.NewString(),
		UserID:         userID,
		RecipientEmail: "recipient@example.com",
		Status:         models.RequestStatusPending,
		UniqueLink:     uuid.NewString(),
		ExpiresAt:      createdAt.Add(7 * 24 * time.Hour),
		IsActive:       true,
		CreatedAt:      createdAt,
	}
	for _, fn := range mutate {
		fn(req)
	}
	db.Create(req)
	return req
}
