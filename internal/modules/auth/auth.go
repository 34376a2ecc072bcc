package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/modular-ai/core/internal/models"
	jwtpkg "github.com/modular-ai/core/internal/pkg/jwt"
	"github.com/modular-ai/core/internal/pkg/response"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateKeyDTO struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) Login(username, password, ip string) (string, error) {
	var u models.UserModel
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("invalid credentials")
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})

	return jwtpkg.Sign(u.ID, 30*24*time.Hour)
}

// SeedAdmin creates the initial admin account when the user table is empty.
func (s *Service) SeedAdmin(username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.db.Model(&models.UserModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := models.UserModel{Username: username, Password: string(hash)}
	if err := s.db.Create(&u).Error; err != nil {
		return err
	}
	s.log.Info("seeded admin account", zap.String("username", username))
	return nil
}

// ValidateAPIKey returns the matching active key record, or nil when the
// key is unknown or disabled. A successful match touches last_used.
func (s *Service) ValidateAPIKey(key string) (*models.APIKeyModel, error) {
	if key == "" {
		return nil, nil
	}
	var rec models.APIKeyModel
	err := s.db.Where("`key` = ? AND active = ?", key, true).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.db.Model(&rec).Update("last_used", now)
	return &rec, nil
}

// GenerateKey creates a new API key record with a random key value.
func (s *Service) GenerateKey(dto *CreateKeyDTO) (*models.APIKeyModel, error) {
	rec := models.APIKeyModel{
		Title:       dto.Title,
		Key:         "mak_" + uuid.NewString(),
		Active:      true,
		Description: dto.Description,
	}
	return &rec, s.db.Create(&rec).Error
}

// KeyFromRequest extracts the caller's API key: the X-API-Key header wins,
// then the api_key query parameter.
func KeyFromRequest(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	return c.Query("api_key")
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.login)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid_request", err.Error())
		return
	}
	token, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP())
	if err != nil {
		response.Unauthorized(c, "invalid_credentials", "Invalid username or password.")
		return
	}
	response.OK(c, loginResponse{Token: token})
}
