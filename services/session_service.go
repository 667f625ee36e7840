package services

import (
	"context"
	"errors"
	"sync"

	"github/itish2003/retrieval/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fixed user-visible status strings. Backend failures never propagate past the
// session boundary; they become one of these and the session stays usable.
const (
	StatusIdle         = "Select a dataset to begin."
	StatusLoading      = "Loading resources..."
	StatusLoadFailed   = "Failed to load resources. Is the retrieval backend running?"
	StatusSearchFailed = "Search failed. Please try again."
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConfigured   = errors.New("no configuration loaded for this session")
)

// Session owns the state machine for one browser session. All mutation happens
// under mu, one completed (or superseded) operation at a time.
//
// Two counters guard against stale async completions:
//   - generation: bumped on every configuration change. A resource load or
//     search completion carrying an old generation belongs to a superseded
//     configuration and is discarded without touching state.
//   - searchSeq: bumped on every search trigger. A search completion is
//     applied only if its sequence equals the latest issued one, so an older
//     response can never overwrite a newer query's results.
type Session struct {
	ID string

	mu         sync.Mutex
	config     models.Configuration
	configured bool
	generation uint64
	searchSeq  uint64
	metricsRaw string
	state      models.SessionState
}

// snapshot copies the state so callers never share slices with the live struct.
func (s *Session) snapshot() models.SessionState {
	state := s.state
	state.Examples = append([]models.RetrievalImage(nil), s.state.Examples...)
	state.Results = append([]models.RetrievalImage(nil), s.state.Results...)
	return state
}

// SessionService is the retrieval session controller: it owns all sessions,
// sequences their async backend operations and exposes state snapshots.
type SessionService interface {
	CreateSession() *models.CreateSessionResponse
	State(id string) (*models.SessionState, error)
	Configure(ctx context.Context, id string, cfg models.Configuration) error
	RefreshExamples(ctx context.Context, id string) error
	SearchByReference(ctx context.Context, id, imageURL string, k int) (*models.SearchAcceptedResponse, error)
	SearchByUpload(ctx context.Context, id string, data []byte, mimeType string, k int) (*models.SearchAcceptedResponse, error)
}

type sessionServiceImpl struct {
	connections *ConnectionManager
	resolver    *ResolverService
	logger      *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionService creates the session controller. All sessions share the
// connection manager's single backend handle.
func NewSessionService(connections *ConnectionManager, resolver *ResolverService, logger *zap.SugaredLogger) SessionService {
	return &sessionServiceImpl{
		connections: connections,
		resolver:    resolver,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// CreateSession registers a fresh session with all flags false and empty
// collections.
func (s *sessionServiceImpl) CreateSession() *models.CreateSessionResponse {
	session := &Session{
		ID: uuid.New().String(),
		state: models.SessionState{
			Status:   StatusIdle,
			Examples: []models.RetrievalImage{},
			Results:  []models.RetrievalImage{},
		},
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Infof("SESSION: Created session %s", session.ID)
	return &models.CreateSessionResponse{
		SessionID: session.ID,
		State:     session.snapshot(),
	}
}

// State returns a snapshot of the session's externally observed state.
func (s *sessionServiceImpl) State(id string) (*models.SessionState, error) {
	session, err := s.session(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	state := session.snapshot()
	return &state, nil
}

// Configure applies a configuration change: it invalidates everything derived
// from the old configuration, bumps the generation so in-flight loads and
// searches for the old one become irrelevant, and starts a new load cycle.
// An unchanged configuration is a no-op.
func (s *sessionServiceImpl) Configure(ctx context.Context, id string, cfg models.Configuration) error {
	session, err := s.session(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	if session.configured && session.config.Equal(cfg) {
		session.mu.Unlock()
		return nil
	}
	session.config = cfg
	session.configured = true
	session.generation++
	generation := session.generation

	session.state.Status = StatusLoading
	session.state.Metrics = nil
	session.metricsRaw = ""
	session.state.Examples = []models.RetrievalImage{}
	session.state.Results = []models.RetrievalImage{}
	session.state.ActiveQueryPreview = ""
	session.state.LoadingResources = true
	session.state.Searching = false
	session.mu.Unlock()

	s.logger.Infof("SESSION: %s configuring dataset=%s size=%s finetuned=%t (generation %d)",
		session.ID, cfg.Dataset, cfg.Size, cfg.Finetuned, generation)

	go s.runLoadCycle(session, generation, cfg)
	return nil
}

// runLoadCycle performs the resource load and the follow-up example refresh
// for one configuration generation.
func (s *sessionServiceImpl) runLoadCycle(session *Session, generation uint64, cfg models.Configuration) {
	ctx := context.Background()

	backend, err := s.connections.Get(ctx)
	if err != nil {
		s.finishLoad(session, generation, nil, nil, err)
		return
	}

	loadResp, err := backend.LoadResources(ctx, cfg)
	if err != nil {
		s.finishLoad(session, generation, nil, nil, err)
		return
	}

	// Example sampling is best-effort: a failed refresh must not fail an
	// otherwise successful load.
	examples, err := backend.SampleExamples(ctx)
	if err != nil {
		s.logger.Warnf("SESSION: %s example refresh after load failed: %v", session.ID, err)
		examples = []models.RetrievalImage{}
	}

	s.finishLoad(session, generation, loadResp, examples, nil)
}

// finishLoad reconciles a settled load cycle with the session. Completions for
// a superseded generation are discarded; only the current configuration's
// response is ever displayed.
func (s *sessionServiceImpl) finishLoad(session *Session, generation uint64, loadResp *models.BackendLoadResponse, examples []models.RetrievalImage, loadErr error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if generation != session.generation {
		s.logger.Infof("SESSION: %s discarding load result for superseded generation %d", session.ID, generation)
		return
	}

	session.state.LoadingResources = false
	if loadErr != nil {
		s.logger.Errorf("SESSION: %s resource load failed: %v", session.ID, loadErr)
		session.state.Status = StatusLoadFailed
		session.state.Metrics = nil
		session.metricsRaw = ""
		return
	}

	// "No metrics yet" (absent) and "all-zero metrics" (present) are told
	// apart by whether the backend sent a raw payload at all.
	session.metricsRaw = loadResp.Metrics
	if loadResp.Metrics != "" {
		metrics := DecodeMetrics(loadResp.Metrics)
		session.state.Metrics = &metrics
	} else {
		session.state.Metrics = nil
	}
	session.state.Status = loadResp.Status
	session.state.Examples = examples
}

// RefreshExamples replaces the example set with a fresh backend sample. It is
// independent of loads and searches and may interleave with them freely; the
// most recently completed refresh wins.
func (s *sessionServiceImpl) RefreshExamples(ctx context.Context, id string) error {
	session, err := s.session(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.state.LoadingExamples = true
	session.mu.Unlock()

	go func() {
		ctx := context.Background()
		var examples []models.RetrievalImage

		backend, err := s.connections.Get(ctx)
		if err == nil {
			examples, err = backend.SampleExamples(ctx)
		}

		session.mu.Lock()
		defer session.mu.Unlock()
		session.state.LoadingExamples = false
		if err != nil {
			s.logger.Warnf("SESSION: %s example refresh failed: %v", session.ID, err)
			return
		}
		session.state.Examples = examples
	}()
	return nil
}

// SearchByReference triggers a top-k search for an existing image, identified
// by URL. The reference is resolved to raw bytes before submission; the
// resolved URL itself becomes the query preview immediately, independent of
// network completion.
func (s *sessionServiceImpl) SearchByReference(ctx context.Context, id, imageURL string, k int) (*models.SearchAcceptedResponse, error) {
	session, generation, sequence, err := s.beginSearch(id, imageURL)
	if err != nil {
		return nil, err
	}

	go func() {
		ctx := context.Background()
		data, err := s.resolver.ResolveReference(ctx, imageURL)
		if err != nil {
			s.finishSearch(session, generation, sequence, nil, &SearchError{Cause: err})
			return
		}
		s.runSearch(session, generation, sequence, SearchQuery{Data: data}, k)
	}()

	return &models.SearchAcceptedResponse{Sequence: sequence, Preview: imageURL}, nil
}

// SearchByUpload triggers a top-k search for raw image bytes from a file
// upload or clipboard paste. The bytes are registered as a locally served
// preview before the backend call starts.
func (s *sessionServiceImpl) SearchByUpload(ctx context.Context, id string, data []byte, mimeType string, k int) (*models.SearchAcceptedResponse, error) {
	preview := s.resolver.RegisterPreview(data, mimeType)

	session, generation, sequence, err := s.beginSearch(id, preview)
	if err != nil {
		return nil, err
	}

	go s.runSearch(session, generation, sequence, SearchQuery{Data: data}, k)

	return &models.SearchAcceptedResponse{Sequence: sequence, Preview: preview}, nil
}

// beginSearch records a new search trigger: it assigns the next sequence
// number, marks it latest issued, and sets the query preview synchronously.
func (s *sessionServiceImpl) beginSearch(id, preview string) (*Session, uint64, uint64, error) {
	session, err := s.session(id)
	if err != nil {
		return nil, 0, 0, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if !session.configured {
		return nil, 0, 0, ErrNotConfigured
	}

	session.searchSeq++
	session.state.Searching = true
	session.state.ActiveQueryPreview = preview
	return session, session.generation, session.searchSeq, nil
}

// runSearch executes the backend image-query operation for one issued search.
func (s *sessionServiceImpl) runSearch(session *Session, generation, sequence uint64, query SearchQuery, k int) {
	ctx := context.Background()

	backend, err := s.connections.Get(ctx)
	if err != nil {
		s.finishSearch(session, generation, sequence, nil, err)
		return
	}

	searchResp, err := backend.QueryImage(ctx, query, k)
	s.finishSearch(session, generation, sequence, searchResp, err)
}

// finishSearch reconciles a settled search with the session. The response is
// applied only if its sequence number still equals the latest issued one and
// its generation is current; otherwise a strictly newer search or a
// configuration change has superseded it and the response is dropped silently.
func (s *sessionServiceImpl) finishSearch(session *Session, generation, sequence uint64, searchResp *models.BackendSearchResponse, searchErr error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if generation != session.generation || sequence != session.searchSeq {
		s.logger.Infof("SESSION: %s discarding superseded search response (seq %d, latest %d)",
			session.ID, sequence, session.searchSeq)
		return
	}

	session.state.Searching = false
	if searchErr != nil {
		s.logger.Errorf("SESSION: %s search failed: %v", session.ID, searchErr)
		session.state.Status = StatusSearchFailed
		return
	}

	results := make([]models.RetrievalImage, 0, len(searchResp.Results))
	for _, ref := range searchResp.Results {
		caption := DecodeCaption(ref.Caption)
		results = append(results, models.RetrievalImage{
			URL:        ref.URL,
			Caption:    ref.Caption,
			Label:      caption.Label,
			Similarity: caption.Similarity,
		})
	}
	session.state.Results = results
	session.state.Status = searchResp.Status
}

func (s *sessionServiceImpl) session(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
