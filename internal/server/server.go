// Package server exposes the webhook endpoint over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v63/github"
	"github.com/google/uuid"
	"github.com/multimediallc/pr-import-bot/internal/app"
	gh "github.com/multimediallc/pr-import-bot/internal/github"
	"github.com/sirupsen/logrus"
)

const deliveryHeader = "X-GitHub-Delivery"

// DeliveryTimeout bounds one import. Imports are detached from the request context and keep
// running when the webhook client disconnects.
const DeliveryTimeout = 10 * time.Minute

type Handler interface {
	Handle(ctx context.Context, delivery string, event *github.PullRequestEvent) (*app.Outcome, error)
}

type errorResponse struct {
	Error    string `json:"error"`
	Delivery string `json:"delivery"`
}

type server struct {
	handler Handler
	secret  []byte
	log     logrus.FieldLogger
}

// NewRouter routes POST /github-callback to handler. An empty secret disables signature checks.
func NewRouter(handler Handler, secret []byte, logger logrus.FieldLogger) *gin.Engine {
	s := &server{handler: handler, secret: secret, log: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "404 Not Found")
	})

	router.POST("/github-callback", s.githubCallback)
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func (s *server) githubCallback(c *gin.Context) {
	delivery := c.GetHeader(deliveryHeader)
	if delivery == "" {
		delivery = uuid.NewString()
	}
	log := s.log.WithField("delivery", delivery)

	event, err := gh.ParseWebhook(c.Request, s.secret)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), DeliveryTimeout)
		defer cancel()
		var outcome *app.Outcome
		outcome, err = s.handler.Handle(ctx, delivery, event)
		if err == nil {
			c.JSON(http.StatusOK, outcome)
			return
		}
	}

	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("delivery failed")
		message = "Internal server error"
	} else {
		log.WithError(err).WithField("status", status).Info("delivery rejected")
	}
	c.JSON(status, errorResponse{Error: message, Delivery: delivery})
}

// StatusFor maps a delivery error to its HTTP status
func StatusFor(err error) int {
	var (
		validationErr  *app.ValidationError
		noCommitsErr   *app.NoCommitsError
		payloadErr     *gh.PayloadError
		unsupportedErr *gh.UnsupportedEventError
		signatureErr   *gh.SignatureError
		forbiddenErr   *app.ForbiddenError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &noCommitsErr),
		errors.As(err, &payloadErr), errors.As(err, &unsupportedErr):
		return http.StatusBadRequest
	case errors.As(err, &signatureErr):
		return http.StatusUnauthorized
	case errors.As(err, &forbiddenErr):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
