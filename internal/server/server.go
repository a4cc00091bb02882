package server

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/klistra/client-go/internal/api"
	"github.com/klistra/client-go/internal/apierrors"
	"github.com/klistra/client-go/internal/crypto"
)

// Service limits.
const (
	MinExpiry          = 60
	MaxExpiry          = 604800
	DefaultExpiry      = 3600
	DefaultMaxBlobSize = 32 << 20
	DefaultMaxBodySize = 8 << 20

	defaultSweepInterval = time.Minute
)

// Default rate limits per client address.
var (
	DefaultGeneralLimit = Limit{Requests: 60, Period: time.Minute}
	DefaultCreateLimit  = Limit{Requests: 5, Period: time.Minute}
)

var blobNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Config configures a Server.
type Config struct {
	// Store holds records and blobs. Defaults to a new MemoryStore.
	Store Store
	// PublicURL prefixes returned blob URLs. Empty returns relative URLs.
	PublicURL string
	// MaxBlobSize is the largest accepted blob in bytes.
	MaxBlobSize int64
	// MaxBodySize is the largest accepted create request in bytes.
	MaxBodySize int64
	// GeneralLimit applies to every API request, CreateLimit additionally to
	// paste creation. A zero Limit disables that bucket.
	GeneralLimit Limit
	CreateLimit  Limit
	// SweepInterval is how often Run removes expired entries.
	SweepInterval time.Duration
	Logger        zerolog.Logger
	// Now and Rand are overridable for tests.
	Now  func() time.Time
	Rand io.Reader
}

// Server is the HTTP paste service.
type Server struct {
	store         Store
	publicURL     string
	maxBlobSize   int64
	maxBodySize   int64
	sweepInterval time.Duration
	general       *limiter
	create        *limiter
	ids           *idGenerator
	metrics       *metrics
	logger        zerolog.Logger
	now           func() time.Time
}

// New creates a Server. Zero Config fields take their defaults; rate limits
// are only applied when set.
func New(cfg Config) *Server {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.MaxBlobSize <= 0 {
		cfg.MaxBlobSize = DefaultMaxBlobSize
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	if clocked, ok := cfg.Store.(interface{ SetClock(func() time.Time) }); ok {
		clocked.SetClock(cfg.Now)
	}

	s := &Server{
		store:         cfg.Store,
		publicURL:     strings.TrimRight(cfg.PublicURL, "/"),
		maxBlobSize:   cfg.MaxBlobSize,
		maxBodySize:   cfg.MaxBodySize,
		sweepInterval: cfg.SweepInterval,
		metrics:       newMetrics(),
		logger:        cfg.Logger.With().Str("component", "server").Logger(),
		now:           cfg.Now,
	}
	if cfg.GeneralLimit.Requests > 0 {
		s.general = newLimiter(cfg.GeneralLimit, cfg.Now)
	}
	if cfg.CreateLimit.Requests > 0 {
		s.create = newLimiter(cfg.CreateLimit, cfg.Now)
	}
	s.ids = &idGenerator{rand: cfg.Rand, taken: storeTaken(cfg.Store)}
	return s
}

var ginMode sync.Once

// Handler returns the service's HTTP handler.
func (s *Server) Handler() http.Handler {
	ginMode.Do(func() { gin.SetMode(gin.ReleaseMode) })

	r := gin.New()
	// Rate limits key on the peer address, never on forwarded headers.
	_ = r.SetTrustedProxies(nil)
	r.Use(cors, s.observe, gin.CustomRecoveryWithWriter(io.Discard, s.recoverPanic))

	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	routes := r.Group("/api", s.limit("general", s.general))
	routes.POST("/pastes", s.limit("create", s.create), s.handleCreatePaste)
	routes.GET("/pastes/:id", s.handleGetPaste)
	routes.GET("/pastes/:id/status", s.handlePasteStatus)
	routes.POST("/files/:name", s.handleUploadBlob)
	routes.GET("/files/:name", s.handleDownloadBlob)
	routes.GET("/server-info", s.handleServerInfo)

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			abortError(c, http.StatusNotFound, "API endpoint not found")
			return
		}
		c.AbortWithStatus(http.StatusNotFound)
	})
	return r
}

// Run removes expired entries every sweep interval until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Sweep removes expired entries once and prunes idle rate limit buckets.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	s.general.prune()
	s.create.prune()

	n, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.sweptEntries.Add(float64(n))
		s.logger.Debug().Int("removed", n).Msg("expired entries swept")
	}
	return n, nil
}

const requestIDKey = "request_id"

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// cors lets browser clients on any origin call the API.
func cors(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, "+api.HeaderVerifier+", "+api.HeaderRequestID)
	h.Set("Access-Control-Expose-Headers", api.HeaderRequestID+", Retry-After")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

// observe assigns the request id and records logs and metrics once the
// request is done.
func (s *Server) observe(c *gin.Context) {
	start := s.now()

	id := c.GetHeader(api.HeaderRequestID)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(api.HeaderRequestID, id)

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	elapsed := s.now().Sub(start)
	s.metrics.requestSeconds.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Observe(elapsed.Seconds())

	var ev *zerolog.Event
	switch {
	case status >= 500:
		ev = s.logger.Error()
	case status == http.StatusTooManyRequests:
		ev = s.logger.Warn()
	default:
		ev = s.logger.Info()
	}
	ev.Str("request_id", id).
		Str("method", c.Request.Method).
		Str("route", route).
		Int("status", status).
		Dur("duration", elapsed).
		Msg("request")
}

// limit rejects clients that have exhausted l. A nil l lets every request
// through.
func (s *Server) limit(bucket string, l *limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}
		s.metrics.rateLimited.WithLabelValues(bucket).Inc()
		secs := int(wait.Seconds())
		if wait > time.Duration(secs)*time.Second {
			secs++
		}
		c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
		abortError(c, http.StatusTooManyRequests, "rate limit exceeded")
	}
}

func (s *Server) recoverPanic(c *gin.Context, recovered any) {
	s.logger.Error().Str("request_id", requestID(c)).Interface("panic", recovered).Msg("handler panicked")
	abortError(c, http.StatusInternalServerError, "internal error")
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: msg, RequestID: requestID(c)})
}

func (s *Server) blobURL(name string) string {
	return s.publicURL + "/api/files/" + name
}

func (s *Server) handleServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, api.ServerInfo{
		MinExpiry:     MinExpiry,
		MaxExpiry:     MaxExpiry,
		DefaultExpiry: DefaultExpiry,
		MaxFileSize:   s.maxBlobSize - crypto.EnvelopeOverhead,
		Algs:          crypto.AlgsCiphersuite,
	})
}

// validateCreate checks a create request and returns the decoded verifier
// of a protected paste.
func validateCreate(req *api.CreatePasteRequest) ([]byte, error) {
	if req.Expiry < MinExpiry || req.Expiry > MaxExpiry {
		return nil, errors.New("expiry must be between 60 and 604800 seconds")
	}
	if req.Text == "" && len(req.Files) == 0 {
		return nil, errors.New("paste has no content")
	}
	if req.Text != "" {
		env, err := crypto.DecodeBase64(req.Text)
		if err != nil || len(env) < crypto.EnvelopeOverhead {
			return nil, errors.New("text is not a valid envelope")
		}
	}
	for _, f := range req.Files {
		if f.Name == "" || f.URL == "" || f.Size < 0 {
			return nil, errors.New("file entries need a name, a url and a size")
		}
	}

	if !req.Protected {
		if req.Verifier != "" {
			return nil, errors.New("unprotected paste must not carry a verifier")
		}
		if _, err := crypto.KeyFromEncoded(req.Key); err != nil {
			return nil, errors.New("unprotected paste needs a valid key")
		}
		return nil, nil
	}

	if req.Key != "" {
		return nil, errors.New("protected paste must not carry a key")
	}
	salt, err := crypto.DecodeBase64(req.Salt)
	if err != nil || len(salt) < crypto.MinSaltSize {
		return nil, errors.New("protected paste needs a salt")
	}
	verifier, err := crypto.DecodeBase64(req.Verifier)
	if err != nil || len(verifier) != crypto.VerifierSize {
		return nil, errors.New("protected paste needs a valid verifier")
	}
	return verifier, nil
}

func (s *Server) handleCreatePaste(c *gin.Context) {
	var req api.CreatePasteRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodySize)
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortError(c, http.StatusRequestEntityTooLarge, "request too large")
			return
		}
		abortError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	verifier, err := validateCreate(&req)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	now := s.now()
	rec := &Record{
		Text:      req.Text,
		Protected: req.Protected,
		Verifier:  verifier,
		Salt:      req.Salt,
		Key:       req.Key,
		Language:  req.Language,
		Files:     req.Files,
		ExpiresAt: now.Add(time.Duration(req.Expiry) * time.Second).UTC().Truncate(time.Second),
	}

	for attempt := 0; ; attempt++ {
		id, err := s.ids.Generate(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("id generation failed")
			abortError(c, http.StatusInternalServerError, "failed to generate id")
			return
		}
		rec.ID = id
		err = s.store.CreatePaste(ctx, rec)
		if err == nil {
			break
		}
		if errors.Is(err, ErrIDTaken) && attempt < 3 {
			continue
		}
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("store paste failed")
		abortError(c, http.StatusInternalServerError, "database error")
		return
	}

	s.metrics.pastesCreated.WithLabelValues(strconv.FormatBool(rec.Protected)).Inc()
	c.JSON(http.StatusCreated, api.CreatePasteResponse{
		ID:          rec.ID,
		ExpiresAt:   rec.ExpiresAt,
		TimeoutUnix: rec.ExpiresAt.Unix(),
	})
}

// loadLive fetches a record, deleting and reporting it when expired. It
// writes the error response itself and returns nil on failure.
func (s *Server) loadLive(c *gin.Context) *Record {
	ctx := c.Request.Context()
	id := c.Param("id")
	rec, err := s.store.GetPaste(ctx, id)
	if errors.Is(err, apierrors.ErrPasteNotFound) {
		s.metrics.pasteReads.WithLabelValues(outcomeNotFound).Inc()
		abortError(c, http.StatusNotFound, "paste not found")
		return nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("load paste failed")
		abortError(c, http.StatusInternalServerError, "database error")
		return nil
	}
	if rec.Expired(s.now()) {
		if err := s.store.DeletePaste(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("paste_id", id).Msg("delete expired paste failed")
		}
		s.metrics.pasteReads.WithLabelValues(outcomeExpired).Inc()
		abortError(c, http.StatusGone, "paste has expired")
		return nil
	}
	return rec
}

func (s *Server) handleGetPaste(c *gin.Context) {
	rec := s.loadLive(c)
	if rec == nil {
		return
	}

	resp := api.PasteResponse{
		ID:          rec.ID,
		Protected:   rec.Protected,
		Salt:        rec.Salt,
		TimeoutUnix: rec.ExpiresAt.Unix(),
		Language:    rec.Language,
	}

	if rec.Protected {
		header := c.GetHeader(api.HeaderVerifier)
		if header == "" {
			s.metrics.pasteReads.WithLabelValues(outcomeLocked).Inc()
			c.JSON(http.StatusOK, resp)
			return
		}
		presented, err := crypto.DecodeBase64(header)
		if err != nil || !crypto.VerifierEqual(presented, rec.Verifier) {
			s.metrics.pasteReads.WithLabelValues(outcomeRejected).Inc()
			abortError(c, http.StatusUnauthorized, "incorrect password")
			return
		}
	} else {
		resp.Key = rec.Key
	}

	text := rec.Text
	resp.Text = &text
	resp.Files = append([]api.FileEntry{}, rec.Files...)

	s.metrics.pasteReads.WithLabelValues(outcomeOK).Inc()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePasteStatus(c *gin.Context) {
	rec := s.loadLive(c)
	if rec == nil {
		return
	}
	c.JSON(http.StatusOK, api.PasteStatus{
		ID:          rec.ID,
		Protected:   rec.Protected,
		TimeoutUnix: rec.ExpiresAt.Unix(),
	})
}

func (s *Server) handleUploadBlob(c *gin.Context) {
	name := c.Param("name")
	if !blobNamePattern.MatchString(name) {
		abortError(c, http.StatusBadRequest, "invalid file name")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBlobSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortError(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		abortError(c, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(data) < crypto.EnvelopeOverhead {
		abortError(c, http.StatusBadRequest, "file is not a valid envelope")
		return
	}

	// Blobs outlive any paste that can reference them, so orphans expire too.
	err = s.store.PutBlob(c.Request.Context(), name, data, MaxExpiry*time.Second)
	if errors.Is(err, ErrBlobExists) {
		s.logger.Warn().Str("request_id", requestID(c)).Str("blob", name).Msg("blob name already taken")
		abortError(c, http.StatusConflict, "file already exists")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("store blob failed")
		abortError(c, http.StatusInternalServerError, "storage error")
		return
	}

	s.metrics.blobBytes.WithLabelValues("in").Add(float64(len(data)))
	c.JSON(http.StatusCreated, api.UploadResponse{URL: s.blobURL(name)})
}

func (s *Server) handleDownloadBlob(c *gin.Context) {
	data, err := s.store.GetBlob(c.Request.Context(), c.Param("name"))
	if errors.Is(err, apierrors.ErrFileNotFound) {
		abortError(c, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("load blob failed")
		abortError(c, http.StatusInternalServerError, "storage error")
		return
	}

	s.metrics.blobBytes.WithLabelValues("out").Add(float64(len(data)))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, "application/octet-stream", data)
}
