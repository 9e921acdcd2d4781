package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/quotedesk/internal/services"
	"github.com/charlesng35/quotedesk/pkg/response"
)

// ProjectHandler exposes owner project endpoints.
type ProjectHandler struct {
	projects *services.ProjectService
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type createProjectRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4000"`
	ClientName  string `json:"client_name" validate:"max=255"`
	ClientEmail string `json:"client_email" validate:"omitempty,email"`
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	project, err := h.projects.Create(requestContext(c), services.CreateProjectInput{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)
	projects, total, err := h.projects.List(requestContext(c), services.ListProjectsInput{
		OwnerID: userID,
		Status:  c.Query("status"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, projects, pageMeta(limit, offset, total))
}

// Get handles GET /api/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	project, err := h.projects.Get(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}
