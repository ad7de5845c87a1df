package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/geo"
	"github.com/geocoder89/userhub/internal/service/account"
	"github.com/gin-gonic/gin"
)

// AccountService is the slice of the account service the handler needs.
type AccountService interface {
	Register(ctx context.Context, req account.RegisterRequest) (user.PublicView, error)
	ValidateCredentials(ctx context.Context, email, password string) (bool, error)
	ListAll(ctx context.Context) ([]user.PublicView, error)
	DeleteByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CallerIP(ctx context.Context) (string, error)
	LocationByIP(ctx context.Context, addr string) (geo.Location, error)
	CallerLocation(ctx context.Context) (geo.Location, error)
}

type UsersHandler struct {
	svc AccountService
}

func NewUsersHandler(svc AccountService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Gender   string `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type IPResponse struct {
	IPAddress string `json:"ipAddress"`
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// generous budget: includes two external geolocation calls
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)

	defer cancel()

	view, err := h.svc.Register(cctx, account.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Gender:   user.Gender(req.Gender),
		Password: req.Password,
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "User with email "+req.Email+" already exists")
			return
		}

		RespondInternal(ctx, "Could not register user")
		return
	}

	ctx.JSON(http.StatusCreated, view)
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	valid, err := h.svc.ValidateCredentials(cctx, req.Email, req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not validate credentials")
		return
	}

	// a missing user and a wrong password answer identically
	if !valid {
		ctx.JSON(http.StatusUnauthorized, MessageResponse{Message: "Invalid credentials"})
		return
	}

	ctx.JSON(http.StatusOK, LoginResponse{
		Message: "Login successful",
		Email:   req.Email,
	})
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	views, err := h.svc.ListAll(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, views)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	deleted, err := h.svc.DeleteByEmail(cctx, email)

	if err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	if !deleted {
		ctx.JSON(http.StatusNotFound, MessageResponse{Message: "User not found"})
		return
	}

	ctx.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

func (h *UsersHandler) ValidateUser(ctx *gin.Context) {
	email := ctx.Query("email")

	if email == "" {
		RespondBadRequest(ctx, "email query parameter is required", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	exists, err := h.svc.ExistsByEmail(cctx, email)

	if err != nil {
		RespondInternal(ctx, "Could not validate user")
		return
	}

	if !exists {
		ctx.JSON(http.StatusNotFound, MessageResponse{Message: "User not found"})
		return
	}

	ctx.JSON(http.StatusOK, MessageResponse{Message: "User exists"})
}

func (h *UsersHandler) CallerIP(ctx *gin.Context) {
	addr, err := h.svc.CallerIP(ctx.Request.Context())

	if err != nil {
		RespondInternal(ctx, "Failed to retrieve IP address")
		return
	}

	ctx.JSON(http.StatusOK, IPResponse{IPAddress: addr})
}

func (h *UsersHandler) LocationByIP(ctx *gin.Context) {
	addr := ctx.Query("ipAddress")

	if addr == "" {
		RespondBadRequest(ctx, "ipAddress query parameter is required", nil)
		return
	}

	loc, err := h.svc.LocationByIP(ctx.Request.Context(), addr)

	h.respondLocation(ctx, loc, err)
}

func (h *UsersHandler) CallerLocation(ctx *gin.Context) {
	loc, err := h.svc.CallerLocation(ctx.Request.Context())

	h.respondLocation(ctx, loc, err)
}

// respondLocation maps a transport failure to 500 and a provider "no
// data" answer to 404; only a provider success is a 200.
func (h *UsersHandler) respondLocation(ctx *gin.Context, loc geo.Location, err error) {
	if err != nil {
		RespondInternal(ctx, "Failed to retrieve location for IP: "+loc.IP)
		return
	}

	if loc.Status != geo.StatusSuccess {
		RespondNotFound(ctx, "Location not found for IP: "+loc.IP)
		return
	}

	ctx.JSON(http.StatusOK, loc)
}
