package webhook

import (
	"io/ioutil"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	MessageQueueSize = 255
	MaxBodySize      = 1 << 20
)

type Options struct {
	// QueueSize bounds the number of undelivered messages. Defaults to
	// MessageQueueSize.
	QueueSize int

	Log *zap.Logger
}

// Server receives the events posted by the server protector and hands them
// out on Messages.
type Server struct {
	messages chan *Message
	log      *zap.Logger
}

func NewServer(options Options) *Server {
	if options.Log == nil {
		options.Log = zap.NewNop()
	}

	if options.QueueSize <= 0 {
		options.QueueSize = MessageQueueSize
	}

	return &Server{
		messages: make(chan *Message, options.QueueSize),
		log:      options.Log,
	}
}

// Messages delivers every accepted message. Messages are dropped while the
// queue is full.
func (s *Server) Messages() <-chan *Message {
	return s.messages
}

// Register mounts the webhook routes on r.
func (s *Server) Register(r gin.IRoutes) {
	r.POST("/", s.Receive)
	r.POST("/webhook", s.Receive)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
}

func (s *Server) Receive(c *gin.Context) {
	server := ClientIP(c.Request)
	log := s.log.With(zap.String("server", server))

	body, err := ioutil.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize))
	if err != nil {
		log.Error("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	msg, err := Decode(body)
	if err != nil {
		log.Warn("Rejected webhook message", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg.Server = server

	log.Debug("Received webhook message",
		zap.Stringer("id", msg.ID),
		zap.String("msgtype", msg.Type),
		zap.String("title", msg.Title),
		zap.String("content", msg.Content))

	select {
	case s.messages <- msg:
	default:
		log.Warn("Message queue is full, dropping message",
			zap.Stringer("id", msg.ID),
			zap.String("title", msg.Title))
	}

	c.Status(http.StatusNoContent)
}
