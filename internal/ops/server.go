package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes the operational HTTP surface: a health probe and an
// authenticated reload trigger. It never touches the catalog directly;
// reload requests are handed to the update loop over a channel so the
// single-writer model holds.
type Server struct {
	cfg  Config
	log  *zap.Logger
	http *http.Server
}

type Config struct {
	ListenAddr string
	AuthToken  string
	Reload     chan<- struct{}
}

func NewServer(cfg Config, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{cfg: cfg, log: log}
	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the gin handler. Split out so tests can exercise routes
// without binding a port.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), requestLogger(s.log))

	r.GET("/health", s.health)

	admin := r.Group("/admin", bearerAuth(s.cfg.AuthToken))
	admin.POST("/reload", s.reload)

	return r
}

func (s *Server) Run() error {
	s.log.Info("ops server listening", zap.String("addr", s.cfg.ListenAddr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// reload queues a catalog refresh for the update loop. The send is
// non-blocking: a refresh already pending covers this request too.
func (s *Server) reload(c *gin.Context) {
	select {
	case s.cfg.Reload <- struct{}{}:
		s.log.Info("reload queued", zap.String("request_id", c.GetString(requestIDKey)))
	default:
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "reload queued"})
}
