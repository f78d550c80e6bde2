package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/arkplatform/user-service/internal/cqrs"
	"github.com/arkplatform/user-service/internal/middleware"
	"github.com/arkplatform/user-service/internal/models"
	"github.com/arkplatform/user-service/internal/picture"
	"github.com/arkplatform/user-service/internal/query"
	"github.com/arkplatform/user-service/internal/session"
	"github.com/arkplatform/user-service/internal/storage"
	"github.com/gin-gonic/gin"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand, sess session.Establisher) (*models.User, error)
	UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.UserView, error)
	UpdatePassword(ctx context.Context, cmd cqrs.UpdatePasswordCommand) error
	DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand, sess session.Establisher) error
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.UserView, error)
}

// BulkRunner drives a bulk provisioning batch to completion.
type BulkRunner interface {
	Run(ctx context.Context, drafts []cqrs.BulkDraft)
}

// PictureProcessor runs the attachment pipeline for one upload.
type PictureProcessor interface {
	Process(ctx context.Context, userID string, src io.Reader, contentType string, crop picture.CropRect) (*picture.Result, error)
}

// AttachmentGetter serves stored image variants.
type AttachmentGetter interface {
	Get(ctx context.Context, userID, name string) (*storage.Attachment, error)
}

// UserHandler routes requests to the command, query and picture services.
type UserHandler struct {
	commands    UserCommander
	queries     UserQuerier
	bulk        BulkRunner
	pictures    PictureProcessor
	attachments AttachmentGetter
	sessions    *session.Manager

	// bulkCtx outlives individual requests: a batch keeps running after its
	// 202 reply and stops only on service shutdown.
	bulkCtx context.Context
}

func NewUserHandler(
	commands UserCommander,
	queries UserQuerier,
	bulk BulkRunner,
	pictures PictureProcessor,
	attachments AttachmentGetter,
	sessions *session.Manager,
	bulkCtx context.Context,
) *UserHandler {
	return &UserHandler{
		commands:    commands,
		queries:     queries,
		bulk:        bulk,
		pictures:    pictures,
		attachments: attachments,
		sessions:    sessions,
		bulkCtx:     bulkCtx,
	}
}

type CreateUserRequest struct {
	Name        string `json:"name" validate:"required"`
	Surname     string `json:"surname"`
	Mail        string `json:"mail" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Residence   string `json:"residence"`
	Description string `json:"description"`
	Birthdate   string `json:"birthdate"`
}

type UpdateUserRequest struct {
	Rev         string `json:"rev" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Surname     string `json:"surname"`
	Residence   string `json:"residence"`
	Description string `json:"description"`
	Birthdate   string `json:"birthdate"`
}

type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type BulkItem struct {
	Name string `json:"name" validate:"required"`
	Mail string `json:"mail" validate:"required,email"`
}

type BulkCreateRequest struct {
	Users []BulkItem `json:"users" validate:"required,min=1,dive"`
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.commands.CreateUser(c.Request.Context(), cqrs.CreateUserCommand{
		Name:        req.Name,
		Surname:     req.Surname,
		Mail:        req.Mail,
		Password:    req.Password,
		Residence:   req.Residence,
		Description: req.Description,
		Birthdate:   req.Birthdate,
	}, h.sessions.Bind(c))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMailTaken):
			middleware.RespondWithError(c, http.StatusConflict, "Mail address already registered")
		case errors.Is(err, models.ErrCredentialDerivation):
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to derive credentials")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{
		UserID:           userID,
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{
		UserID:           userID,
		RequestingUserID: requestingUserID,
	})
	if err != nil {
		if errors.Is(err, query.ErrForbidden) {
			middleware.RespondWithError(c, http.StatusForbidden, "You can only access your own user details")
			return
		}
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	if userID != requestingUserID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only update your own user details")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		UserID:      userID,
		Rev:         req.Rev,
		Name:        req.Name,
		Surname:     req.Surname,
		Residence:   req.Residence,
		Description: req.Description,
		Birthdate:   req.Birthdate,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, models.ErrRevMismatch):
			middleware.RespondWithError(c, http.StatusConflict, "Revision conflict, reload and retry")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update user")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) UpdatePassword(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	if userID != requestingUserID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only change your own password")
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	if err := h.commands.UpdatePassword(c.Request.Context(), cqrs.UpdatePasswordCommand{
		UserID:   userID,
		Password: req.Password,
	}); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update password")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("userId")
	requestingUserID, _ := middleware.GetUserID(c)

	if userID != requestingUserID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only delete your own account")
		return
	}

	err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{UserID: userID}, h.sessions.Bind(c))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

// BulkCreate acknowledges the batch before any item runs; results are
// observable only through logs and the resulting accounts.
func (h *UserHandler) BulkCreate(c *gin.Context) {
	if !middleware.IsElevated(c) {
		middleware.RespondWithError(c, http.StatusForbidden, "Bulk provisioning requires elevated privileges")
		return
	}

	var req BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	drafts := make([]cqrs.BulkDraft, 0, len(req.Users))
	for _, item := range req.Users {
		drafts = append(drafts, cqrs.BulkDraft{Name: item.Name, Mail: item.Mail})
	}

	go h.bulk.Run(h.bulkCtx, drafts)

	c.JSON(http.StatusAccepted, gin.H{
		"status": "accepted",
		"items":  len(drafts),
	})
}

// UploadPicture targets the authenticated caller's own account; the target
// identity comes from the session, never from the path.
func (h *UserHandler) UploadPicture(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Missing file upload")
		return
	}

	crop, ok := cropFromForm(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid crop geometry")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Unreadable file upload")
		return
	}
	defer file.Close()

	result, err := h.pictures.Process(c.Request.Context(), userID, file,
		fileHeader.Header.Get("Content-Type"), crop)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedImageType) {
			middleware.RespondWithError(c, http.StatusUnsupportedMediaType, "Unsupported image type")
			return
		}
		middleware.RespondWithError(c, http.StatusBadRequest, "Failed to process picture: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "ok",
		"imageLocation": result.Picture,
		"id":            result.ID,
		"rev":           result.Rev,
	})
}

func (h *UserHandler) GetPicture(c *gin.Context) {
	att, err := h.attachments.Get(c.Request.Context(), c.Param("userId"), c.Param("name"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Picture not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to load picture")
		return
	}
	c.Data(http.StatusOK, att.ContentType, att.Data)
}

func cropFromForm(c *gin.Context) (picture.CropRect, bool) {
	var crop picture.CropRect
	var err error
	if crop.X, err = strconv.Atoi(c.DefaultPostForm("x", "0")); err != nil {
		return crop, false
	}
	if crop.Y, err = strconv.Atoi(c.DefaultPostForm("y", "0")); err != nil {
		return crop, false
	}
	if crop.Width, err = strconv.Atoi(c.PostForm("width")); err != nil || crop.Width <= 0 {
		return crop, false
	}
	if crop.Height, err = strconv.Atoi(c.PostForm("height")); err != nil || crop.Height <= 0 {
		return crop, false
	}
	return crop, true
}
