package relay

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"merklesig/internal/domain"
	"merklesig/internal/services/keys"
)

type ackRequest struct {
	Count int `json:"count"`
}

type verifyRequest struct {
	PublicKey []byte `json:"public_key"`
	Message   []byte `json:"message"`
	Signature []byte `json:"signature"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Server is the relay's HTTP front end.
type Server struct {
	router   *gin.Engine
	box      *Mailbox
	log      *zap.Logger
	metrics  *Metrics
	registry *prometheus.Registry
}

// NewServer builds the router over box. Each server has its own metrics
// registry, exposed at /metrics.
func NewServer(box *Mailbox, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		router:   gin.New(),
		box:      box,
		log:      log.Named("relay"),
		metrics:  NewMetrics(reg),
		registry: reg,
	}
	s.router.Use(gin.Recovery(), s.observe)
	s.setupRoutes()
	return s
}

// setupRoutes defines HTTP endpoints.
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	s.router.PUT("/keys/:name", s.handlePublishKey)
	s.router.GET("/keys/:name", s.handleFetchKey)
	s.router.POST("/msg/:user", s.handleSend)
	s.router.GET("/msg/:user", s.handleFetch)
	s.router.POST("/msg/:user/ack", s.handleAck)
	s.router.POST("/verify", s.handleVerify)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// Handler returns the router for use with net/http or httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("relay listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// observe records metrics and a log line for every request.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	elapsed := time.Since(start)
	code := c.Writer.Status()
	s.metrics.RequestCount.WithLabelValues(c.Request.Method, route, strconv.Itoa(code)).Inc()
	s.metrics.RequestLatency.WithLabelValues(route).Observe(elapsed.Seconds())
	s.log.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("route", route),
		zap.Int("status", code),
		zap.Duration("elapsed", elapsed),
	)
}

func (s *Server) fail(c *gin.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// handlePublishKey stores a public key. The body's name must match the path.
func (s *Server) handlePublishKey(c *gin.Context) {
	var key domain.PublishedKey
	if err := c.ShouldBindJSON(&key); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	name := domain.KeyName(c.Param("name"))
	if key.Name != name {
		s.fail(c, http.StatusBadRequest, errors.New("key name does not match path"))
		return
	}
	if _, err := keys.CheckPublicKey(key.PublicKey); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	err := s.box.PutKey(name, key.PublicKey)
	switch {
	case errors.Is(err, ErrKeyConflict):
		s.fail(c, http.StatusConflict, err)
		return
	case errors.Is(err, errBadName):
		s.fail(c, http.StatusBadRequest, err)
		return
	case err != nil:
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.metrics.KeysPublished.Inc()
	s.log.Info("published key", zap.String("key", name.String()))
	c.JSON(http.StatusOK, gin.H{"status": "published"})
}

// handleFetchKey returns a published key.
func (s *Server) handleFetchKey(c *gin.Context) {
	name := domain.KeyName(c.Param("name"))
	pub, err := s.box.Key(name)
	if errors.Is(err, domain.ErrNotFound) {
		s.fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, domain.PublishedKey{Name: name, PublicKey: pub})
}

// handleSend queues an envelope for the path user.
func (s *Server) handleSend(c *gin.Context) {
	var env domain.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if env.To != domain.Username(c.Param("user")) {
		s.fail(c, http.StatusBadRequest, errors.New("recipient does not match path"))
		return
	}
	if err := s.box.Enqueue(env); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, errBadName) {
			code = http.StatusBadRequest
		}
		s.fail(c, code, err)
		return
	}
	s.metrics.EnvelopesQueued.Inc()
	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}

// handleFetch returns queued envelopes, optionally limited by ?limit=.
func (s *Server) handleFetch(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(c, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = n
	}
	envs, err := s.box.Fetch(domain.Username(c.Param("user")), limit)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, envs)
}

// handleAck drops the first count envelopes.
func (s *Server) handleAck(c *gin.Context) {
	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Count < 0 {
		s.fail(c, http.StatusBadRequest, errors.New("invalid ack"))
		return
	}
	n, err := s.box.Ack(domain.Username(c.Param("user")), req.Count)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.metrics.EnvelopesAcked.Add(float64(n))
	c.JSON(http.StatusOK, gin.H{"acked": n})
}

// handleVerify checks a signature without touching any stored state.
func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	err := keys.Verify(req.PublicKey, req.Message, req.Signature)
	switch {
	case err == nil:
		s.metrics.Verifications.WithLabelValues("valid").Inc()
		c.JSON(http.StatusOK, verifyResponse{Valid: true})
	case errors.Is(err, domain.ErrVerificationFailed):
		s.metrics.Verifications.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusOK, verifyResponse{Valid: false})
	default:
		s.metrics.Verifications.WithLabelValues("malformed").Inc()
		s.fail(c, http.StatusBadRequest, err)
	}
}
