package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loan-review-api/services"
)

// Deps holds the wired service layer. Handlers are package-level functions in
// the gin style; Init is called once from main after the stores are built.
type Deps struct {
	Review     *services.ReviewWorkflow
	Compliance *services.ComplianceWorkflow
	Apps       services.ApplicationStore
	Docs       services.DocumentStore
}

var deps Deps

func Init(d Deps) {
	deps = d
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindAuthorization:
		status = http.StatusForbidden
	case services.KindInvalidState:
		status = http.StatusConflict
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindNoCapacity:
		status = http.StatusServiceUnavailable
	case services.KindExternalService:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUserID(c *gin.Context) int64 {
	v, _ := c.Get("userID")
	id, _ := v.(int64)
	return id
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
