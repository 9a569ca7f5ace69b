// Package server exposes the tagger over HTTP: clients POST a corpus
// file and stream back the tagged result.
package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"seqtag/internal/logging"
	"seqtag/pkg/tagger"
)

// Server wraps one loaded tagger. Tagging requests are serialized by
// a lock: the artifacts are read-only but the per-request scratch
// keeps memory bounded.
type Server struct {
	engine *gin.Engine
	tagger *tagger.Tagger
	log    *logging.Logger
	mutex  sync.Mutex
}

func New(t *tagger.Tagger, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine: gin.New(),
		tagger: t,
		log:    log,
	}
	s.engine.Use(gin.Recovery())
	s.engine.GET("/", s.handleUsage)
	s.engine.POST("/tag", s.handleTag)
	return s
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Run blocks serving requests on addr.
func (s *Server) Run(addr string) error {
	s.log.Info("tagging service listening on %s", addr)
	return s.engine.Run(addr)
}

func (s *Server) handleUsage(c *gin.Context) {
	c.String(http.StatusOK, "Usage: HTTP POST /tag a file in the appropriate format\n")
}

func (s *Server) handleTag(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "missing file part\n")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "unreadable file part: %v\n", err)
		return
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	c.Header("Content-Type", "text/tab-separated-values; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.tagger.TagStream(file, c.Writer, tagger.ModeTag); err != nil {
		s.log.Error("tagging request failed: %v", err)
	}
}
