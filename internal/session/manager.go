package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hotel-reports/constants"
	"github.com/joseph-ayodele/hotel-reports/internal/common"
	"github.com/joseph-ayodele/hotel-reports/internal/entity"
	"github.com/joseph-ayodele/hotel-reports/internal/pipeline"
)

var (
	ErrNotFound        = common.NewAppError("SESSION_NOT_FOUND", "session not found", common.ErrNotFound)
	ErrNotEmpty        = common.NewAppError("SESSION_BUSY", "session already holds a batch; reset it first", common.ErrConflict)
	ErrNoAcceptedFiles = common.NewAppError("NO_ACCEPTED_FILES", "please upload at least one valid PDF file", common.ErrInvalidInput)
)

// BatchRunner is what the manager needs to run an upload.
type BatchRunner interface {
	ProcessAll(ctx context.Context, files []entity.UploadedFile) (entity.BatchResult, error)
}

// Snapshot is the externally visible state of a session. Exactly one of Error/Reports is
// meaningful, selected by Status.
type Snapshot struct {
	ID         string                   `json:"id"`
	Status     constants.SessionStatus  `json:"status"`
	Files      []string                 `json:"files,omitempty"`
	Error      string                   `json:"error,omitempty"`
	FailedFile string                   `json:"failedFile,omitempty"`
	Reports    []entity.ProcessedReport `json:"reports,omitempty"`
	CreatedAt  time.Time                `json:"createdAt"`
	UpdatedAt  time.Time                `json:"updatedAt"`
}

type state struct {
	snap         Snapshot
	generation   uint64
	done         chan struct{} // open while a batch is loading
	lastAccessed time.Time
}

// Manager holds upload sessions in memory.
type Manager struct {
	sessions map[string]*state
	mu       sync.RWMutex
	runner   BatchRunner
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(runner BatchRunner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*state),
		runner:   runner,
		logger:   logger,
		now:      time.Now,
	}
}

// Create starts a new session in the empty state.
func (m *Manager) Create() Snapshot {
	now := m.now()
	st := &state{
		snap: Snapshot{
			ID:        uuid.New().String(),
			Status:    constants.SessionStatusEmpty,
			CreatedAt: now,
			UpdatedAt: now,
		},
		lastAccessed: now,
	}

	m.mu.Lock()
	m.sessions[st.snap.ID] = st
	m.mu.Unlock()

	m.logger.Info("session.created", "session_id", st.snap.ID)
	return copySnapshot(st.snap)
}

// Get returns a deep copy of the session's current state; changing it never affects the session.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	st.lastAccessed = m.now()
	return copySnapshot(st.snap), nil
}

// FilterAccepted keeps files of an accepted document type. It returns the names of the
// rejected files and ErrNoAcceptedFiles when nothing is left.
func FilterAccepted(files []entity.UploadedFile) ([]entity.UploadedFile, []string, error) {
	accepted := make([]entity.UploadedFile, 0, len(files))
	var rejected []string
	for _, f := range files {
		if constants.IsAcceptedMimeType(f.MIMEType) {
			accepted = append(accepted, f)
			continue
		}
		rejected = append(rejected, f.Name)
	}
	if len(accepted) == 0 {
		return nil, rejected, ErrNoAcceptedFiles
	}
	return accepted, rejected, nil
}

// Submit moves an empty session to loading and runs the batch in the background.
// The batch is detached from ctx: once submitted it runs to completion.
func (m *Manager) Submit(ctx context.Context, id string, files []entity.UploadedFile) (Snapshot, error) {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}
	if st.snap.Status != constants.SessionStatusEmpty {
		m.mu.Unlock()
		return Snapshot{}, ErrNotEmpty
	}
	accepted, rejected, err := FilterAccepted(files)
	if err != nil {
		m.mu.Unlock()
		return Snapshot{}, err
	}

	names := make([]string, len(accepted))
	for i, f := range accepted {
		names[i] = f.Name
	}
	st.generation++
	gen := st.generation
	st.done = make(chan struct{})
	st.snap.Status = constants.SessionStatusLoading
	st.snap.Files = names
	st.snap.UpdatedAt = m.now()
	st.lastAccessed = st.snap.UpdatedAt
	snap := copySnapshot(st.snap)
	m.mu.Unlock()

	logger := common.LoggerFromContext(common.WithSessionID(ctx, id), m.logger)
	if len(rejected) > 0 {
		logger.Warn("session.files.rejected", "rejected", rejected)
	}
	logger.Info("session.batch.submitted", "files", len(accepted), "generation", gen)

	go m.run(context.WithoutCancel(ctx), id, gen, accepted, logger)
	return snap, nil
}

func (m *Manager) run(ctx context.Context, id string, gen uint64, files []entity.UploadedFile, logger *slog.Logger) {
	var (
		res entity.BatchResult
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("batch panicked: %v", r)
			}
		}()
		res, err = m.runner.ProcessAll(ctx, files)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok || st.generation != gen || st.snap.Status != constants.SessionStatusLoading {
		logger.Info("session.batch.discarded", "generation", gen)
		return
	}

	st.snap.Files = nil
	st.snap.UpdatedAt = m.now()
	if err != nil {
		st.snap.Status = constants.SessionStatusError
		st.snap.Error = err.Error()
		var bErr *pipeline.BatchError
		if errors.As(err, &bErr) {
			st.snap.FailedFile = bErr.FileName()
		}
		logger.Error("session.batch.failed", "error", err, "generation", gen)
	} else {
		st.snap.Status = constants.SessionStatusResults
		st.snap.Reports = copySnapshot(Snapshot{Reports: res.Reports}).Reports
		logger.Info("session.batch.ok", "reports", len(res.Reports), "generation", gen)
	}
	close(st.done)
	st.done = nil
}

// Reset returns the session to empty from any state. A batch still running is not
// aborted; its outcome is dropped when it arrives.
func (m *Manager) Reset(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	prev := st.snap.Status
	st.generation++
	if st.done != nil {
		close(st.done)
		st.done = nil
	}
	now := m.now()
	st.snap = Snapshot{
		ID:        st.snap.ID,
		Status:    constants.SessionStatusEmpty,
		CreatedAt: st.snap.CreatedAt,
		UpdatedAt: now,
	}
	st.lastAccessed = now

	m.logger.Info("session.reset", "session_id", id, "from", prev)
	return copySnapshot(st.snap), nil
}

// Delete drops the session entirely.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if st.done != nil {
		close(st.done)
		st.done = nil
	}
	delete(m.sessions, id)
	m.logger.Info("session.deleted", "session_id", id)
	return nil
}

// Wait blocks until the session leaves the loading state or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Snapshot, error) {
	m.mu.RLock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.RUnlock()
		return Snapshot{}, ErrNotFound
	}
	done := st.done
	m.mu.RUnlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
	return m.Get(id)
}

// CleanupIdle removes sessions not accessed within maxAge. Loading sessions are kept.
func (m *Manager) CleanupIdle(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, st := range m.sessions {
		if st.snap.Status == constants.SessionStatusLoading {
			continue
		}
		if st.lastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("session.cleanup", "removed", removed, "remaining", len(m.sessions))
	}
	return removed
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func copySnapshot(s Snapshot) Snapshot {
	if s.Files != nil {
		s.Files = append([]string(nil), s.Files...)
	}
	if s.Reports != nil {
		reports := make([]entity.ProcessedReport, len(s.Reports))
		for i, r := range s.Reports {
			reports[i] = r.Clone()
		}
		s.Reports = reports
	}
	return s
}
