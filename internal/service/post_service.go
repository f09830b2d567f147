package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/repository"
	"github.com/postpulse/postpulse/internal/transfer"
)

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Get(ctx context.Context, userID, postID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db     *sql.DB
	pr     repository.PostRepository
	pp     repository.PostPlatformRepository
	sa     repository.SocialAccountRepository
	assets *AssetService
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pp repository.PostPlatformRepository,
	sa repository.SocialAccountRepository,
	assets *AssetService) PostService {
	return &postService{
		db:     db,
		pr:     pr,
		pp:     pp,
		sa:     sa,
		assets: assets,
	}
}

// Create stores the post with its publish targets and media in one
// transaction. The returned delay is how long until the scheduled time;
// zero means the post stays a draft.
func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Title == "" || pc.Body == "" {
		err := errors.New("title and body are required")
		slog.Info(err.Error())
		return 0, 0, err
	}

	status := models.PostStatusDraft
	var scheduledAt *time.Time
	if pc.ScheduledAt != "" {
		t, err := time.Parse("2006-01-02T15:04", pc.ScheduledAt)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
		scheduledAt = &t
		status = models.PostStatusScheduled
	}

	var selectedAccounts []int64
	if pc.SelectedAccounts != "" {
		if err := json.Unmarshal([]byte(pc.SelectedAccounts), &selectedAccounts); err != nil {
			err = fmt.Errorf("invalid selected accounts format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}
	}
	if status == models.PostStatusScheduled && len(selectedAccounts) == 0 {
		err := errors.New("no social accounts selected")
		slog.Error(err.Error())
		return 0, 0, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:      userID,
		Title:       pc.Title,
		Body:        pc.Body,
		Status:      status,
		ScheduledAt: scheduledAt,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.registerTargets(ctx, tx, userID, postID, selectedAccounts); err != nil {
		return 0, 0, fmt.Errorf("error processing selected accounts: %w", err)
	}

	for i, file := range files {
		if _, err = s.assets.Store(ctx, tx, userID, postID, i, file); err != nil {
			return 0, 0, fmt.Errorf("error processing files: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	var delay time.Duration
	if scheduledAt != nil {
		delay = time.Until(*scheduledAt)
		if delay < 0 {
			delay = 0
		}
	}

	return postID, delay, nil
}

func (s *postService) registerTargets(ctx context.Context, tx *sql.Tx, userID, postID int64, accountIDs []int64) error {
	for _, accountID := range accountIDs {
		ok, err := s.sa.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("account %d doesn't belong to the user", accountID)
		}

		account, err := s.sa.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("account %d not found", accountID)
		}

		_, err = s.pp.CreatePending(ctx, tx, &models.PostPlatform{
			PostID:      postID,
			AccountID:   account.ID,
			Platform:    account.Platform,
			AccountName: account.AccountName,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		err := errors.New("user id is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	return s.pr.ListByUserID(ctx, userID)
}

func (s *postService) Get(ctx context.Context, userID, postID int64) (*models.Post, error) {
	ok, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("post doesn't exist")
	}
	return s.pr.GetByID(ctx, postID)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	ok, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !ok {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return s.pr.Remove(ctx, postID)
}
