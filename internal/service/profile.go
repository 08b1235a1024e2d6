package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// PhotoStorage is the object-store surface the profile service needs.
type PhotoStorage interface {
	SavePhoto(ctx context.Context, ownerID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

var _ PhotoStorage = (*StorageService)(nil)

// ProfileService owns profile mutations beyond credentials.
type ProfileService struct {
	users  UserStore
	photos PhotoStorage
}

func NewProfileService(users UserStore, photos PhotoStorage) *ProfileService {
	return &ProfileService{
		users:  users,
		photos: photos,
	}
}

// UpdatePhoto stores the uploaded photo and records its object path on the
// user. Returns the stored path.
func (s *ProfileService) UpdatePhoto(ctx context.Context, userID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	objectName, err := s.photos.SavePhoto(ctx, user.ID, filename, reader, size, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}

	if err := s.users.UpdatePhoto(ctx, user.ID, objectName); err != nil {
		return "", err
	}

	return objectName, nil
}
