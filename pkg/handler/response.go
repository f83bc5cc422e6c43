package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"withdrawal_settlement/pkg/service"
)

type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type validationResponse struct {
	Errors []service.FieldError `json:"errors"`
}

func newErrorResponse(c *gin.Context, statusCode int, code, message string) {
	entry := logrus.WithFields(logrus.Fields{
		"status": statusCode,
		"code":   code,
		"path":   c.FullPath(),
	})
	if statusCode >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Info(message)
	}
	c.AbortWithStatusJSON(statusCode, Error{Error: code, Message: message})
}

var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrNotFound, http.StatusNotFound, "NotFound"},
	{service.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{service.ErrDependencyUnavailable, http.StatusServiceUnavailable, "DependencyUnavailable"},
	{service.ErrTerminalState, http.StatusConflict, "TerminalState"},
	{service.ErrInvalidTransition, http.StatusConflict, "InvalidTransition"},
	{service.ErrMissingReason, http.StatusUnprocessableEntity, "MissingReason"},
	{service.ErrUnknownAction, http.StatusUnprocessableEntity, "UnknownAction"},
}

// newServiceErrorResponse maps a service error to its HTTP form.
func newServiceErrorResponse(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		logrus.WithField("path", c.FullPath()).Info(verr.Error())
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, validationResponse{Errors: verr.Errors})
		return
	}
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			msg := err.Error()
			if se.status == http.StatusServiceUnavailable {
				// The cause stays in the log.
				logrus.WithField("path", c.FullPath()).WithError(err).Warn("collaborator failed")
				msg = se.err.Error()
			}
			newErrorResponse(c, se.status, se.code, msg)
			return
		}
	}
	logrus.WithField("path", c.FullPath()).WithError(err).Error("unhandled service error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, Error{Error: "Internal", Message: "internal error"})
}

func wrapOkJSON(c *gin.Context, response map[string]interface{}) {
	c.JSON(http.StatusOK, response)
}
