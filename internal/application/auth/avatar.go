package auth

import (
	"context"
	"errors"
	"time"

	"github.com/okravchuk/contacts-api/internal/domain"
)

// Avatar uploads go to a third-party object store; they must never block an
// auth-critical path. EnqueueAvatar hands the bytes to a background worker
// and returns immediately; the worker uploads, stores the returned reference
// and reports the outcome through the audit sink.

const avatarUploadTimeout = 30 * time.Second

type avatarJob struct {
	userID      string
	data        []byte
	contentType string
}

// EnqueueAvatar queues an avatar upload for the user. A full queue is
// reported as unavailable rather than blocking the request.
func (s *Service) EnqueueAvatar(userID string, data []byte, contentType string) error {
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if len(data) == 0 {
		return domain.ErrMissingField("avatar")
	}
	if s.avatars == nil {
		return domain.ErrInternal(errors.New("avatar store not configured"))
	}

	select {
	case s.avatarJobs <- avatarJob{userID: userID, data: data, contentType: contentType}:
		return nil
	default:
		return domain.Wrap(domain.KindUnavailable, "avatar_queue_full", "avatar upload queue is full", nil)
	}
}

// RunAvatarWorker drains the avatar queue until ctx is cancelled. Started
// once from bootstrap; safe to skip entirely when no avatar store is wired.
func (s *Service) RunAvatarWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.avatarJobs:
			s.processAvatar(ctx, job)
		}
	}
}

func (s *Service) processAvatar(ctx context.Context, job avatarJob) {
	uploadCtx, cancel := context.WithTimeout(ctx, avatarUploadTimeout)
	defer cancel()

	url, err := s.avatars.Upload(uploadCtx, job.data, job.contentType)
	if err != nil {
		s.audit("avatar.upload_failed", map[string]string{
			"user_id": job.userID,
			"error":   err.Error(),
		})
		return
	}

	if err := s.users.SetAvatarURL(uploadCtx, job.userID, url); err != nil {
		s.audit("avatar.save_failed", map[string]string{
			"user_id": job.userID,
			"error":   err.Error(),
		})
		return
	}

	s.audit("avatar.updated", map[string]string{
		"user_id": job.userID,
		"url":     url,
	})
}
