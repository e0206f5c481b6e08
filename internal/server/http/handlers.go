package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avolkov-dev/authguard/internal/config"
	"github.com/avolkov-dev/authguard/internal/model"
	"github.com/avolkov-dev/authguard/internal/service"
)

type handler struct {
	cfg     *config.Config
	auth    service.AuthService
	account service.AccountService
	admin   service.AdminService
	log     *zap.Logger
}

func (h *handler) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"msg": "pong"})
}

type signUpRequest struct {
	Login     string `json:"login" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	u, err := h.auth.SignUp(c.Request.Context(), service.SignUpInput{
		Login:     req.Login,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    u.ID.String(),
		"login": u.Login,
		"email": u.Email,
	})
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Login, req.Password, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"msg": "login successful"})
}

func (h *handler) userInfo(c *gin.Context) {
	claims := sessionClaims(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":    claims.Subject,
		"is_admin":   claims.IsAdmin,
		"expires_at": claims.ExpiresAt.Time.Format(time.RFC3339),
	})
}

func (h *handler) refresh(c *gin.Context) {
	refreshRaw, err := c.Cookie(h.cfg.RefreshCookie)
	if err != nil || refreshRaw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing refresh token"})
		return
	}
	// the paired access token rides along so the rotation can check linkage
	accessRaw := h.accessToken(c)

	pair, err := h.auth.Refresh(c.Request.Context(), refreshRaw, accessRaw, c.Request.UserAgent())
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"msg": "token refreshed"})
}

func (h *handler) logout(c *gin.Context) {
	claims := sessionClaims(c)
	refreshRaw, _ := c.Cookie(h.cfg.RefreshCookie)

	if err := h.auth.Logout(c.Request.Context(), claims, refreshRaw, c.Request.UserAgent()); err != nil {
		writeError(c, err)
		return
	}

	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"msg": "logout successful"})
}

type roleResponse struct {
	ID          string `json:"id"`
	Lvl         int    `json:"lvl"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxYear     int    `json:"max_year"`
}

func toRoleResponse(r *model.Role) roleResponse {
	return roleResponse{
		ID:          r.ID.String(),
		Lvl:         r.Lvl,
		Name:        r.Name,
		Description: r.Description,
		MaxYear:     r.MaxYear,
	}
}

type profileResponse struct {
	ID        string       `json:"id"`
	Login     string       `json:"login"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Role      roleResponse `json:"role"`
}

func toProfileResponse(p *service.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID.String(),
		Login:     p.Login,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      toRoleResponse(&p.Role),
	}
}

func (h *handler) selfData(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing access token"})
		return
	}

	p, err := h.account.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}

type changeProfileRequest struct {
	Login     *string `json:"login"`
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (h *handler) changeProfile(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing access token"})
		return
	}

	var req changeProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	p, err := h.account.ChangeProfile(c.Request.Context(), userID, service.ProfileChanges{
		Login:     req.Login,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(p))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (h *handler) changePassword(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing access token"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if err := h.account.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "password changed"})
}

type historyEntryResponse struct {
	UserAgent string `json:"user_agent"`
	EventType string `json:"event_type"`
	Result    bool   `json:"result"`
	CreatedAt string `json:"created_at"`
}

func (h *handler) userHistory(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing access token"})
		return
	}

	page := 1
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "page must be a positive integer"})
			return
		}
		page = n
	}

	entries, err := h.account.History(c.Request.Context(), userID, page, h.cfg.PageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			UserAgent: e.UserAgent,
			EventType: string(e.EventType),
			Result:    e.Result,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "entries": out})
}

type changeLevelRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

func (h *handler) changeLevel(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing access token"})
		return
	}

	var req changeLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	role, err := h.account.ChangeLevel(c.Request.Context(), userID, req.Direction == "up")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

type roleRequest struct {
	Lvl         int    `json:"lvl"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	MaxYear     int    `json:"max_year"`
}

func (h *handler) createRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	role, err := h.admin.CreateRole(c.Request.Context(), service.RoleInput{
		Lvl:         req.Lvl,
		Name:        req.Name,
		Description: req.Description,
		MaxYear:     req.MaxYear,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRoleResponse(role))
}

func (h *handler) updateRole(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed role id"})
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	role, err := h.admin.UpdateRole(c.Request.Context(), id, service.RoleInput{
		Lvl:         req.Lvl,
		Name:        req.Name,
		Description: req.Description,
		MaxYear:     req.MaxYear,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

func (h *handler) deleteRole(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed role id"})
		return
	}

	if err := h.admin.DeleteRole(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type assignRoleRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	RoleID string `json:"role_id" binding:"required,uuid"`
}

func (h *handler) assignRole(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	userID, _ := uuid.FromString(req.UserID)
	roleID, _ := uuid.FromString(req.RoleID)

	if err := h.admin.AssignRole(c.Request.Context(), userID, roleID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "role assigned"})
}

func (h *handler) setSessionCookies(c *gin.Context, pair model.TokenPair) {
	c.SetCookie(h.cfg.AccessCookie, pair.AccessToken, int(h.cfg.AccessTTL.Seconds()), "/", "", false, true)
	c.SetCookie(h.cfg.RefreshCookie, pair.RefreshToken, int(h.cfg.RefreshTTL.Seconds()), "/", "", false, true)
}

func (h *handler) clearSessionCookies(c *gin.Context) {
	c.SetCookie(h.cfg.AccessCookie, "", -1, "/", "", false, true)
	c.SetCookie(h.cfg.RefreshCookie, "", -1, "/", "", false, true)
}
