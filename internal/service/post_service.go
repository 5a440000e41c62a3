package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagarpkr/multipost/internal/models"
	"github.com/sagarpkr/multipost/internal/orchestrator"
	"github.com/sagarpkr/multipost/internal/repository"
	"github.com/sagarpkr/multipost/internal/transfer"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*transfer.PostResponse, error)
	Publish(ctx context.Context, userID, postID int64, targetAccountIDs []int64) (*transfer.PostResponse, error)
	Cancel(ctx context.Context, userID, postID int64) error
	List(ctx context.Context, userID int64) ([]*transfer.PostResponse, error)
	PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostResponse, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	tr repository.PublishTargetRepository
	ma repository.MediaAttachmentRepository
	ac repository.SocialAccountRepository
	o  *orchestrator.Orchestrator
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	tr repository.PublishTargetRepository,
	ma repository.MediaAttachmentRepository,
	ac repository.SocialAccountRepository,
	o *orchestrator.Orchestrator) PostService {
	return &postService{
		db: db,
		pr: pr,
		tr: tr,
		ma: ma,
		ac: ac,
		o:  o,
	}
}

// CreatePost persists the post with its media links and targets. A post with
// a future scheduled time is submitted right away and comes back scheduled;
// anything else stays a draft until the publish trigger.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*transfer.PostResponse, error) {
	if pc == nil {
		slog.Error("post creation data is nil")
		return nil, orchestrator.ErrValidation
	}
	if pc.Text == "" && len(pc.MediaRefs) == 0 {
		slog.Info("post has neither text nor media")
		return nil, orchestrator.ErrValidation
	}

	var scheduledAt time.Time
	if pc.ScheduledAt != "" {
		var err error
		scheduledAt, err = time.Parse(time.RFC3339, pc.ScheduledAt)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return nil, err
		}
	}

	// Begin database transaction
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
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
		Text:        pc.Text,
		ScheduledAt: scheduledAt,
		Status:      models.PostStatusDraft,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	post.ID = postID

	if err = s.linkMedia(ctx, tx, userID, postID, pc.MediaRefs); err != nil {
		return nil, fmt.Errorf("error processing media refs: %w", err)
	}

	if err = s.saveTargets(ctx, tx, userID, postID, pc.TargetAccountIDs); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if !scheduledAt.IsZero() {
		if err := s.o.Submit(ctx, &post, pc.TargetAccountIDs); err != nil {
			return nil, err
		}
	}

	return s.respond(ctx, &post)
}

func (s *postService) linkMedia(ctx context.Context, tx *sql.Tx, userID, postID int64, mediaRefs []int64) error {
	for i, refID := range mediaRefs {
		ma, err := s.ma.GetByID(ctx, refID)
		if err != nil {
			return err
		}
		if ma == nil || ma.UserID != userID {
			return fmt.Errorf("media attachment %d does not exist", refID)
		}
		if err := s.ma.LinkToPost(ctx, tx, postID, refID, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *postService) saveTargets(ctx context.Context, tx *sql.Tx, userID, postID int64, accountIDs []int64) error {
	for _, accountID := range accountIDs {
		acc, err := s.ac.GetByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("error checking social account %d: %w", accountID, err)
		}
		if acc == nil || acc.UserID != userID {
			return fmt.Errorf("%w: account %d", orchestrator.ErrAccountNotLinked, accountID)
		}
		if acc.IsRevoked() {
			return fmt.Errorf("%w: account %d", orchestrator.ErrAccountRevoked, accountID)
		}

		target := models.PublishTarget{
			PostID:    postID,
			AccountID: accountID,
			Provider:  acc.Provider,
			Status:    models.TargetStatusPending,
		}
		if _, err := s.tr.Create(ctx, tx, &target); err != nil {
			return fmt.Errorf("error saving publish target %d: %w", accountID, err)
		}
	}
	return nil
}

func (s *postService) respond(ctx context.Context, post *models.Post) (*transfer.PostResponse, error) {
	media, err := s.ma.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	targets, err := s.tr.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return transfer.ToPostResponse(post, media, targets), nil
}

// Publish triggers dispatch for a draft or due scheduled post. The call
// returns as soon as the post is queued; provider calls happen on the workers.
func (s *postService) Publish(ctx context.Context, userID, postID int64, targetAccountIDs []int64) (*transfer.PostResponse, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		slog.Info("post doesn't exist", "post_id", postID)
		return nil, orchestrator.ErrPostNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, orchestrator.ErrPostNotFound
	}

	if err := s.o.Submit(ctx, post, targetAccountIDs); err != nil {
		return nil, err
	}

	return s.respond(ctx, post)
}

func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	return s.o.Cancel(ctx, userID, postID)
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*transfer.PostResponse, error) {
	var err error

	if userID == 0 {
		err = errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		slog.Info("post doesn't exist", "post_id", postID)
		return nil, orchestrator.ErrPostNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, fmt.Errorf("error getting post info")
	}

	return s.respond(ctx, post)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*transfer.PostResponse, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}

	responses := make([]*transfer.PostResponse, 0, len(posts))
	for _, post := range posts {
		resp, err := s.respond(ctx, post)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// Remove deletes a post that has not started dispatching. Targets and media
// links go with it.
func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		slog.Info("post doesn't exist", "post_id", postID)
		return orchestrator.ErrPostNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return orchestrator.ErrPostNotFound
	}
	if post.Status == models.PostStatusDispatching {
		return orchestrator.ErrSchedulingConflict
	}
	if post.IsTerminal() {
		return orchestrator.ErrPostTerminal
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}
	return nil
}
