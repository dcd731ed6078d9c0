package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ksred/studio-payroll/internal/types"
	"github.com/ksred/studio-payroll/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 20
	TokenTTL          = 24 * time.Hour
)

// User is a studio operator account
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"size:20"`
	PasswordHash string `gorm:"not null"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Service handles sign-up, login and token verification
type Service struct {
	db        *gorm.DB
	jwtSecret []byte
	now       func() time.Time
}

// NewService creates a new authentication service with the given JWT secret
func NewService(db *gorm.DB, jwtSecret string) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// SignUp validates the credentials and stores a new user with a bcrypt hash
func (s *Service) SignUp(creds types.Credentials) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	name := strings.TrimSpace(creds.Name)

	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", response.ErrValidation)
	}
	if len(creds.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", response.ErrValidation, MinPasswordLength)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: name must be at most %d characters", response.ErrValidation, MaxNameLength)
	}

	var count int64
	if err := s.db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{Email: email, Name: name, PasswordHash: string(hash)}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	log.Info().Str("component", "auth").Uint("user_id", user.ID).Msg("user signed up")
	return user, nil
}

// Login checks the credentials and issues a bearer token valid for 24 hours
func (s *Service) Login(creds types.Credentials) (*types.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))

	var user User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.GenerateToken(&user)
}

// GenerateToken signs an HS256 token for the user
func (s *Service) GenerateToken(user *User) (*types.TokenResponse, error) {
	now := s.now()
	expiration := now.Add(TokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Email: user.Email,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &types.TokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		Expiration:  expiration,
	}, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for authentication endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SignUpHandler handles POST /auth/signup
func (h *GinHandlers) SignUpHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds types.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		user, err := h.service.SignUp(creds)
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"id": user.ID, "email": user.Email, "name": user.Name})
	}
}

// LoginHandler handles POST /auth/login
func (h *GinHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds types.Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.Login(creds)
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(c, err.Error())
			return
		}
		response.Handle(c, token, err)
	}
}
