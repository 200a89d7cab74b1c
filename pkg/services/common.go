// Package services holds the admission controller, the periodic reconcilers
// and the API-facing request/upload services.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
)

func uploadURL(baseURL, link string) string {
	return fmt.Sprintf("%s/share/%s", strings.TrimRight(baseURL, "/"), link)
}

// recipientAddress resolves where notifications about a request go: the
// recipient email when present, otherwise the owning user's address.
func recipientAddress(ctx context.Context, repo repository.Repository, req *models.FileRequest) (string, error) {
	if req.RecipientEmail != "" {
		return req.RecipientEmail, nil
	}
	if req.UserID == nil {
		return "", fmt.Errorf("request %s has neither recipient email nor owner", req.ID)
	}
	user, err := repo.FindUserByID(ctx, *req.UserID)
	if err != nil {
		return "", fmt.Errorf("resolve owner of request %s: %w", req.ID, err)
	}
	return user.Email, nil
}
