// Package orchestrator drives multi-target publishing: it fans a post out to
// provider adapters under a bounded worker budget, retries transient
// failures, and folds per-target outcomes into the post's aggregate status.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"

	"github.com/sagarpkr/multipost/internal/models"
	"github.com/sagarpkr/multipost/internal/publisher"
	"github.com/sagarpkr/multipost/internal/repository"
)

// AccountRegistry is the slice of the external account service the
// orchestrator consumes. Revoke must be idempotent.
type AccountRegistry interface {
	ListLinked(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	Credential(ctx context.Context, acc *models.SocialAccount) (*oauth2.Token, error)
	Revoke(ctx context.Context, accountID int64) error
}

// MediaStore exposes attachment metadata and the readiness probe of the
// external media storage.
type MediaStore interface {
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAttachment, error)
	IsReady(ctx context.Context, attachmentID int64) (bool, error)
}

// Enqueuer hands a claimed post to the asynchronous dispatch workers.
type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, postID int64, delay time.Duration) error
}

type Config struct {
	// Workers bounds concurrent publish attempts per dispatch. Zero means
	// one worker per registered provider.
	Workers          int
	AttemptTimeout   time.Duration
	MediaWaitTimeout time.Duration
	MediaPollEvery   time.Duration
	Retry            RetryPolicy
}

func (c Config) withDefaults(providers int) Config {
	if c.Workers <= 0 {
		c.Workers = providers
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
	if c.MediaWaitTimeout <= 0 {
		c.MediaWaitTimeout = 2 * time.Minute
	}
	if c.MediaPollEvery <= 0 {
		c.MediaPollEvery = 5 * time.Second
	}
	c.Retry = c.Retry.withDefaults()
	return c
}

type Orchestrator struct {
	cfg      Config
	posts    repository.PostRepository
	targets  repository.PublishTargetRepository
	accounts AccountRegistry
	media    MediaStore
	registry *publisher.Registry
	enqueue  Enqueuer

	// Per-post serialization point for status recomputation. Two targets
	// finishing at once must not both read stale status and write a wrong
	// aggregate.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	now func() time.Time
}

func New(
	cfg Config,
	posts repository.PostRepository,
	targets repository.PublishTargetRepository,
	accounts AccountRegistry,
	media MediaStore,
	registry *publisher.Registry,
	enqueue Enqueuer) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg.withDefaults(registry.Len()),
		posts:    posts,
		targets:  targets,
		accounts: accounts,
		media:    media,
		registry: registry,
		enqueue:  enqueue,
		locks:    make(map[int64]*sync.Mutex),
		now:      time.Now,
	}
}

// Submit accepts a post for publication. It validates the post and target
// accounts, creates one pending target per account, and either leaves the
// post scheduled for the sweep or claims it and enqueues immediate dispatch.
// Submit never blocks on provider calls; dispatch is asynchronous.
func (o *Orchestrator) Submit(ctx context.Context, post *models.Post, targetAccountIDs []int64) error {
	if post == nil {
		return ErrValidation
	}
	if post.IsTerminal() || post.Status == models.PostStatusDispatching {
		return ErrSchedulingConflict
	}

	if err := o.validateContent(ctx, post); err != nil {
		return err
	}

	existing, err := o.targets.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}

	// Targets saved at creation time stand unless the caller names a new set.
	if len(targetAccountIDs) > 0 || len(existing) == 0 {
		targetAccounts, err := o.resolveTargets(ctx, post.UserID, targetAccountIDs)
		if err != nil {
			return err
		}

		for _, acc := range targetAccounts {
			t := &models.PublishTarget{
				PostID:    post.ID,
				AccountID: acc.ID,
				Provider:  acc.Provider,
				Status:    models.TargetStatusPending,
			}
			if _, err := o.targets.Create(ctx, nil, t); err != nil {
				return fmt.Errorf("create publish target for account %d: %w", acc.ID, err)
			}
		}
	}

	if post.IsScheduled(o.now()) {
		if err := o.posts.UpdateStatus(ctx, models.PostStatusScheduled, post.ID); err != nil {
			return err
		}
		post.Status = models.PostStatusScheduled
		return nil
	}

	claimed, err := o.Claim(ctx, post.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrSchedulingConflict
	}
	post.Status = models.PostStatusDispatching

	if err := o.enqueue.EnqueueDispatch(ctx, post.ID, 0); err != nil {
		return fmt.Errorf("enqueue dispatch: %w", err)
	}
	return nil
}

// Claim stamps a fresh dispatch epoch on the post. Only the caller that wins
// the claim may enqueue dispatch; everyone else sees false.
func (o *Orchestrator) Claim(ctx context.Context, postID int64) (bool, error) {
	epoch, err := gonanoid.New()
	if err != nil {
		return false, err
	}
	return o.posts.ClaimDispatch(ctx, postID, epoch)
}

// DispatchNow runs publish attempts for every pending target of the post.
// Calling it on an already-terminal post is a no-op; no duplicate provider
// calls are made. Dispatch errors are recorded on targets, never returned.
func (o *Orchestrator) DispatchNow(ctx context.Context, postID int64) error {
	post, err := o.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.IsTerminal() {
		return nil
	}

	if post.Status != models.PostStatusDispatching {
		claimed, err := o.Claim(ctx, postID)
		if err != nil {
			return err
		}
		if !claimed {
			// Someone else owns this dispatch.
			return nil
		}
		post.Status = models.PostStatusDispatching
	}

	attachments, err := o.waitForMedia(ctx, post)
	if err != nil {
		if _, ferr := o.targets.FailPending(ctx, postID, models.ErrorKindMediaNotReady, err.Error()); ferr != nil {
			slog.Info(ferr.Error())
		}
		o.recompute(ctx, postID)
		return nil
	}

	content := publisher.Content{Text: post.Text}
	for _, ma := range attachments {
		content.Media = append(content.Media, publisher.MediaItem{
			StorageKey: ma.StorageKey,
			Type:       ma.Type,
		})
	}

	targets, err := o.targets.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.cfg.Workers)

	for _, t := range targets {
		if !o.retryEligible(t) {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(t *models.PublishTarget) {
			defer wg.Done()
			defer func() { <-semaphore }()
			o.runTarget(ctx, post, t, content)
		}(t)
	}

	wg.Wait()
	o.recompute(ctx, postID)
	return nil
}

// retryEligible reports whether a dispatch pass should run the target.
// Pending targets always run. A target stuck in publishing past the attempt
// timeout was orphaned by a worker that died mid-attempt; the redelivered
// task picks it up again so the post cannot sit in dispatching forever.
func (o *Orchestrator) retryEligible(t *models.PublishTarget) bool {
	switch t.Status {
	case models.TargetStatusPending:
		return true
	case models.TargetStatusPublishing:
		return t.LastAttemptAt.IsZero() || o.now().Sub(t.LastAttemptAt) > o.cfg.AttemptTimeout
	}
	return false
}

// Cancel stops a post before or during dispatch. A scheduled post is failed
// outright with zero provider calls and pruned from the schedule. A
// dispatching post stops launching new attempts; in-flight attempts finish
// and their results are still applied.
func (o *Orchestrator) Cancel(ctx context.Context, userID, postID int64) error {
	owned, err := o.posts.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrPostNotFound
	}

	post, err := o.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.IsTerminal() {
		return ErrPostTerminal
	}

	cancelled, err := o.posts.CancelPending(ctx, postID)
	if err != nil {
		return err
	}
	if cancelled {
		// Pre-dispatch: fail whatever targets exist and stop here. The
		// status flip off `scheduled` removes the post from the sweep.
		if _, err := o.targets.FailPending(ctx, postID, models.ErrorKindCancelled, "cancelled before dispatch"); err != nil {
			return err
		}
		return nil
	}

	// Dispatching: cooperative. The flag is checked before every new
	// attempt; targets nobody picked up yet are failed right away.
	if err := o.posts.SetCancelled(ctx, postID); err != nil {
		return err
	}
	if _, err := o.targets.FailPending(ctx, postID, models.ErrorKindCancelled, "cancelled during dispatch"); err != nil {
		return err
	}
	o.recompute(ctx, postID)
	return nil
}

func (o *Orchestrator) validateContent(ctx context.Context, post *models.Post) error {
	if post.Text != "" {
		return nil
	}
	attachments, err := o.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}
	if len(attachments) == 0 {
		return ErrValidation
	}
	return nil
}

func (o *Orchestrator) resolveTargets(ctx context.Context, userID int64, accountIDs []int64) ([]*models.SocialAccount, error) {
	if len(accountIDs) == 0 {
		linked, err := o.accounts.ListLinked(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(linked) == 0 {
			return nil, ErrNoTargets
		}
		return linked, nil
	}

	accounts := make([]*models.SocialAccount, 0, len(accountIDs))
	for _, id := range accountIDs {
		acc, err := o.accounts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if acc == nil || acc.UserID != userID {
			return nil, fmt.Errorf("%w: account %d", ErrAccountNotLinked, id)
		}
		if acc.IsRevoked() {
			return nil, fmt.Errorf("%w: account %d", ErrAccountRevoked, id)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// waitForMedia blocks dispatch until every referenced attachment is ready or
// the wait budget runs out. The post sits in dispatching with all targets
// pending for the duration.
func (o *Orchestrator) waitForMedia(ctx context.Context, post *models.Post) ([]*models.MediaAttachment, error) {
	attachments, err := o.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, nil
	}

	deadline := o.now().Add(o.cfg.MediaWaitTimeout)
	for {
		allReady := true
		for _, ma := range attachments {
			if ma.Ready {
				continue
			}
			ready, err := o.media.IsReady(ctx, ma.ID)
			if err != nil {
				return nil, err
			}
			if ready {
				ma.Ready = true
				continue
			}
			allReady = false
		}
		if allReady {
			return attachments, nil
		}
		if o.now().After(deadline) {
			return nil, ErrMediaNotReady
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.cfg.MediaPollEvery):
		}
	}
}

// runTarget owns one target until it reaches a terminal status. Attempts for
// distinct targets are causally independent; only the final recompute is
// serialized.
func (o *Orchestrator) runTarget(ctx context.Context, post *models.Post, t *models.PublishTarget, content publisher.Content) {
	lookupFailures := 0

	for {
		if o.isCancelled(ctx, post.ID) {
			o.failTarget(ctx, t, models.ErrorKindCancelled, "cancelled before attempt")
			break
		}

		acc, err := o.accounts.GetByID(ctx, t.AccountID)
		if err != nil {
			// Lookup failure is infrastructure, not a verdict on the
			// account. Retry a few times before giving up transient.
			lookupFailures++
			if lookupFailures > o.cfg.Retry.MaxAttempts {
				o.failTarget(ctx, t, models.ErrorKindTransient, fmt.Sprintf("account lookup: %v", err))
				break
			}
			select {
			case <-ctx.Done():
				o.failTarget(ctx, t, models.ErrorKindTransient, ctx.Err().Error())
				return
			case <-time.After(o.cfg.Retry.BaseDelay):
			}
			continue
		}
		if acc == nil || acc.UserID != post.UserID {
			o.failTarget(ctx, t, models.ErrorKindPermanent, "account not linked")
			break
		}
		if acc.IsRevoked() {
			// Revoked mid-dispatch: fail without spending a provider call.
			o.failTarget(ctx, t, models.ErrorKindRevoked, "account revoked")
			break
		}

		pub, err := o.registry.Resolve(t.Provider)
		if err != nil {
			slog.Error("no publisher registered", "provider", t.Provider, "post_id", post.ID)
			o.failTarget(ctx, t, models.ErrorKindPermanent, err.Error())
			break
		}

		cred, err := o.accounts.Credential(ctx, acc)
		if err != nil {
			o.failTarget(ctx, t, models.ErrorKindPermanent, fmt.Sprintf("credential: %v", err))
			break
		}

		t.AttemptCount++
		t.Status = models.TargetStatusPublishing
		t.LastAttemptAt = o.now()
		if err := o.targets.Update(ctx, t); err != nil {
			slog.Info(err.Error())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		providerPostID, err := pub.Publish(attemptCtx, &publisher.Request{
			Content:        content,
			Credential:     cred,
			IdempotencyKey: fmt.Sprintf("%d-%d-%d", post.ID, t.AccountID, t.AttemptCount),
		})
		cancel()

		if err == nil {
			t.Status = models.TargetStatusSucceeded
			t.ProviderPostID = providerPostID
			t.ErrorKind = ""
			t.ErrorMessage = ""
			if uerr := o.targets.Update(ctx, t); uerr != nil {
				slog.Info(uerr.Error())
			}
			break
		}

		kind := publisher.KindOf(err)
		t.ErrorKind = string(kind)
		t.ErrorMessage = err.Error()
		slog.Info("publish attempt failed",
			"post_id", post.ID, "account_id", t.AccountID,
			"provider", t.Provider, "attempt", t.AttemptCount, "kind", kind)

		if kind == publisher.KindPermanent {
			t.Status = models.TargetStatusFailed
			if uerr := o.targets.Update(ctx, t); uerr != nil {
				slog.Info(uerr.Error())
			}
			// The credential is bad upstream; ask the registry to revoke.
			// The call is idempotent, so at-least-once is fine.
			if rerr := o.accounts.Revoke(ctx, t.AccountID); rerr != nil {
				slog.Info("revoke request failed", "account_id", t.AccountID, "err", rerr.Error())
			}
			break
		}

		delay, retry := o.cfg.Retry.Decide(kind, t.AttemptCount)
		if !retry {
			t.Status = models.TargetStatusFailed
			if uerr := o.targets.Update(ctx, t); uerr != nil {
				slog.Info(uerr.Error())
			}
			break
		}

		t.Status = models.TargetStatusPending
		if uerr := o.targets.Update(ctx, t); uerr != nil {
			slog.Info(uerr.Error())
		}

		select {
		case <-ctx.Done():
			o.failTarget(ctx, t, models.ErrorKindTransient, ctx.Err().Error())
			return
		case <-time.After(delay):
		}
	}

	o.recompute(ctx, post.ID)
}

func (o *Orchestrator) isCancelled(ctx context.Context, postID int64) bool {
	post, err := o.posts.GetByID(ctx, postID)
	if err != nil || post == nil {
		return false
	}
	return post.Cancelled
}

func (o *Orchestrator) failTarget(ctx context.Context, t *models.PublishTarget, kind, message string) {
	t.Status = models.TargetStatusFailed
	t.ErrorKind = kind
	t.ErrorMessage = message
	if err := o.targets.Update(ctx, t); err != nil {
		slog.Info(err.Error())
	}
}

// recompute re-derives the post status from its targets under the per-post
// lock. Terminal posts are never downgraded, so the aggregate mapping stays
// monotonic even when a stale worker recomputes late.
func (o *Orchestrator) recompute(ctx context.Context, postID int64) {
	lock := o.lockFor(postID)
	lock.Lock()
	defer lock.Unlock()

	post, err := o.posts.GetByID(ctx, postID)
	if err != nil || post == nil {
		return
	}
	if post.IsTerminal() {
		o.forget(postID)
		return
	}

	targets, err := o.targets.ListByPostID(ctx, postID)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if len(targets) == 0 {
		return
	}

	status := Aggregate(targets)
	if status != post.Status {
		if err := o.posts.UpdateStatus(ctx, status, postID); err != nil {
			slog.Info(err.Error())
			return
		}
	}
	if (&models.Post{Status: status}).IsTerminal() {
		o.forget(postID)
	}
}

func (o *Orchestrator) lockFor(postID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[postID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[postID] = lock
	}
	return lock
}

// forget drops the post's lock entry. Terminal posts never recompute again,
// so holding their mutexes for the life of the process only leaks memory.
func (o *Orchestrator) forget(postID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.locks, postID)
}
