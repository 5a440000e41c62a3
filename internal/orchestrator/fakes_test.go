package orchestrator

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sagarpkr/multipost/internal/models"
	"github.com/sagarpkr/multipost/internal/publisher"
)

// In-memory stand-ins for the SQL repositories and external collaborators.
// They copy rows in and out the way a real scan would, so tests catch code
// that mutates shared state instead of persisting it.

type memPosts struct {
	mu     sync.Mutex
	rows   map[int64]*models.Post
	nextID int64
}

func newMemPosts() *memPosts {
	return &memPosts{rows: make(map[int64]*models.Post)}
}

func (m *memPosts) add(p *models.Post) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.rows[p.ID] = &cp
	return p
}

func (m *memPosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	m.add(post)
	return post.ID, nil
}

func (m *memPosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, p := range m.rows {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPosts) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[postID]
	return ok && p.UserID == userID, nil
}

func (m *memPosts) UpdateStatus(ctx context.Context, status string, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[postID]; ok {
		p.Status = status
	}
	return nil
}

func (m *memPosts) ClaimDispatch(ctx context.Context, postID int64, epoch string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[postID]
	if !ok {
		return false, nil
	}
	if p.DispatchEpoch != "" {
		return false, nil
	}
	if p.Status != models.PostStatusDraft && p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.DispatchEpoch = epoch
	p.Status = models.PostStatusDispatching
	return true, nil
}

func (m *memPosts) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, p := range m.rows {
		if p.Status == models.PostStatusScheduled && p.DispatchEpoch == "" && !p.ScheduledAt.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPosts) CancelPending(ctx context.Context, postID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[postID]
	if !ok {
		return false, nil
	}
	if p.Status != models.PostStatusDraft && p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Cancelled = true
	p.Status = models.PostStatusFailed
	return true, nil
}

func (m *memPosts) SetCancelled(ctx context.Context, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[postID]; ok {
		p.Cancelled = true
	}
	return nil
}

func (m *memPosts) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

type memTargets struct {
	mu     sync.Mutex
	rows   map[int64]*models.PublishTarget
	nextID int64
}

func newMemTargets() *memTargets {
	return &memTargets{rows: make(map[int64]*models.PublishTarget)}
}

func (m *memTargets) Create(ctx context.Context, tx *sql.Tx, t *models.PublishTarget) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.PostID == t.PostID && row.AccountID == t.AccountID {
			// unique (post_id, account_id): conflicting insert is a no-op
			return 0, nil
		}
	}
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.rows[t.ID] = &cp
	return t.ID, nil
}

func (m *memTargets) GetByPostAndAccount(ctx context.Context, postID, accountID int64) (*models.PublishTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.PostID == postID && row.AccountID == accountID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memTargets) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PublishTarget
	for _, row := range m.rows {
		if row.PostID == postID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTargets) Update(ctx context.Context, t *models.PublishTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.ID]; ok {
		cp := *t
		m.rows[t.ID] = &cp
	}
	return nil
}

func (m *memTargets) FailPending(ctx context.Context, postID int64, kind, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.PostID == postID && row.Status == models.TargetStatusPending {
			row.Status = models.TargetStatusFailed
			row.ErrorKind = kind
			row.ErrorMessage = message
			n++
		}
	}
	return n, nil
}

type fakeAccounts struct {
	mu      sync.Mutex
	rows    map[int64]*models.SocialAccount
	revoked map[int64]int
	credErr error

	// getErr is returned from the next getErrs GetByID calls.
	getErr  error
	getErrs int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		rows:    make(map[int64]*models.SocialAccount),
		revoked: make(map[int64]int),
	}
}

func (f *fakeAccounts) add(acc *models.SocialAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acc.AccountStatus == "" {
		acc.AccountStatus = models.AccountStatusLinked
	}
	f.rows[acc.ID] = acc
}

func (f *fakeAccounts) ListLinked(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SocialAccount
	for _, acc := range f.rows {
		if acc.UserID == userID && !acc.IsRevoked() {
			cp := *acc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErrs > 0 {
		f.getErrs--
		return nil, f.getErr
	}
	acc, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeAccounts) Credential(ctx context.Context, acc *models.SocialAccount) (*oauth2.Token, error) {
	if f.credErr != nil {
		return nil, f.credErr
	}
	return &oauth2.Token{AccessToken: "token-" + acc.Provider, TokenType: "Bearer"}, nil
}

func (f *fakeAccounts) Revoke(ctx context.Context, accountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[accountID]++
	if acc, ok := f.rows[accountID]; ok {
		acc.AccountStatus = models.AccountStatusRevoked
	}
	return nil
}

func (f *fakeAccounts) revokeCalls(accountID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[accountID]
}

type fakeMedia struct {
	mu     sync.Mutex
	byPost map[int64][]*models.MediaAttachment
	ready  map[int64]bool
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		byPost: make(map[int64][]*models.MediaAttachment),
		ready:  make(map[int64]bool),
	}
}

func (f *fakeMedia) attach(postID int64, ma *models.MediaAttachment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPost[postID] = append(f.byPost[postID], ma)
	f.ready[ma.ID] = ma.Ready
}

func (f *fakeMedia) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.MediaAttachment
	for _, ma := range f.byPost[postID] {
		cp := *ma
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeMedia) IsReady(ctx context.Context, attachmentID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready[attachmentID], nil
}

type fakeEnqueuer struct {
	mu      sync.Mutex
	postIDs []int64
}

func (f *fakeEnqueuer) EnqueueDispatch(ctx context.Context, postID int64, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postIDs = append(f.postIDs, postID)
	return nil
}

func (f *fakeEnqueuer) enqueued() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.postIDs...)
}

// fakePublisher dispatches to a closure and counts calls.
type fakePublisher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req *publisher.Request) (string, error)
}

func (f *fakePublisher) Publish(ctx context.Context, req *publisher.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return "remote-1", nil
	}
	return f.fn(ctx, req)
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
