package middleware

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ksred/studio-payroll/pkg/response"
)

const RequestIDHeader = "X-Request-ID"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex

	// Configure limits per endpoint type
	authLimit    = rate.Limit(10.0 / 60.0)   // 10 requests per minute
	writeLimit   = rate.Limit(300.0 / 60.0)  // 300 requests per minute
	readLimit    = rate.Limit(1200.0 / 60.0) // 1200 requests per minute
	authBurst    = 5
	defaultBurst = 20
)

// Cleanup old visitors periodically
func init() {
	go cleanupVisitors()
}

func getLimiter(method, path, clientKey string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	class := "read"
	switch {
	case strings.HasPrefix(path, "/api/auth"):
		class = "auth"
	case method != "GET":
		class = "write"
	}

	key := clientKey + ":" + class
	v, exists := visitors[key]

	if !exists {
		var limiter *rate.Limiter
		switch class {
		case "auth":
			limiter = rate.NewLimiter(authLimit, authBurst)
		case "write":
			limiter = rate.NewLimiter(writeLimit, defaultBurst)
		default:
			limiter = rate.NewLimiter(readLimit, defaultBurst)
		}

		v = &visitor{limiter: limiter}
		visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for key, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, key)
			}
		}
		mu.Unlock()
	}
}

// RateLimit throttles per authenticated user when mounted after JWTAuth,
// and per client IP otherwise
func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.GetString("userID")
		if clientKey == "" {
			clientKey = c.ClientIP()
		}

		if !getLimiter(c.Request.Method, c.Request.URL.Path, clientKey).Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuth verifies the bearer token signed with secret and puts the user id
// and email on the context
func JWTAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		bearerToken := strings.Split(c.GetHeader("Authorization"), " ")
		if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "bearer") {
			response.Unauthorized(c, "Invalid authorization header")
			c.Abort()
			return
		}

		token, err := jwt.Parse(bearerToken[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		})

		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			response.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		// Ensure required claims exist
		for _, claim := range []string{"sub", "exp"} {
			if _, exists := claims[claim]; !exists {
				response.Unauthorized(c, fmt.Sprintf("Missing required claim: %s", claim))
				c.Abort()
				return
			}
		}

		userID, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		c.Set("claims", claims)
		c.Set("userID", userID)
		c.Set("email", email)

		c.Next()
	}
}

// RequestLogger tags every request with an id and logs its outcome
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("component", "http").
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}
