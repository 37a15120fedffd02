// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/handlers"
	"github.com/amirphl/Kusanagi/app/middleware"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	authMiddleware *middleware.AuthMiddleware
	authHandler    handlers.AuthHandlerInterface
	userHandler    handlers.UserHandlerInterface
	ticketHandler  handlers.TicketHandlerInterface
	chatHandler    handlers.ChatHandlerInterface
	messageHandler handlers.MessageHandlerInterface
	allowedOrigins []string
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	authMiddleware *middleware.AuthMiddleware,
	authHandler handlers.AuthHandlerInterface,
	userHandler handlers.UserHandlerInterface,
	ticketHandler handlers.TicketHandlerInterface,
	chatHandler handlers.ChatHandlerInterface,
	messageHandler handlers.MessageHandlerInterface,
	allowedOrigins []string,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Kusanagi Helpdesk API",
		ServerHeader: "Kusanagi",
		ErrorHandler: errorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:            app,
		authMiddleware: authMiddleware,
		authHandler:    authHandler,
		userHandler:    userHandler,
		ticketHandler:  ticketHandler,
		chatHandler:    chatHandler,
		messageHandler: messageHandler,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Prometheus metrics endpoint
	r.app.Get("/metrics", func(c fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())(c.RequestCtx())
		return nil
	})

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        2000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Stricter rate limiting bucket for credential endpoints
	authLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	})

	// Auth endpoints
	api.Post("/register", r.authHandler.Register, authLimiter)
	api.Post("/stregister", r.authHandler.RegisterStaff, authLimiter)
	api.Post("/signin", r.authHandler.Login, authLimiter)
	api.Post("/stsignin", r.authHandler.Login, authLimiter)
	api.Post("/forgot-password", r.authHandler.ForgotPassword, authLimiter)
	api.Post("/reset-password", r.authHandler.ResetPassword, authLimiter)
	api.Post("/logout", r.authHandler.Logout, r.authMiddleware.Authenticate())

	authed := api.Group("", r.authMiddleware.Authenticate())

	// User management (admin) and profile
	users := authed.Group("/users", r.authMiddleware.RequireAdmin())
	users.Get("/", r.userHandler.List)
	users.Get("/:id", r.userHandler.Get)
	users.Put("/:id", r.userHandler.Update)
	users.Delete("/:id", r.userHandler.Delete)

	authed.Get("/ict-staff", r.userHandler.ListICTStaff)
	authed.Get("/profile", r.userHandler.GetProfile)
	authed.Put("/profile", r.userHandler.UpdateProfile)

	// Tickets
	issues := authed.Group("/issues")
	issues.Post("/", r.ticketHandler.Create)
	issues.Get("/", r.ticketHandler.List)
	issues.Get("/my", r.ticketHandler.ListMine)
	issues.Get("/export", r.ticketHandler.Export, r.authMiddleware.RequireAdmin())
	issues.Get("/:id", r.ticketHandler.Get)
	issues.Put("/:id", r.ticketHandler.Update)
	issues.Delete("/:id", r.ticketHandler.Delete)

	// Chat sessions
	chat := authed.Group("/chat")
	chat.Get("/available-staff", r.chatHandler.AvailableStaff)
	chat.Post("/start", r.chatHandler.Start)
	chat.Get("/active", r.chatHandler.ActiveSessions, r.authMiddleware.RequireAdmin())
	chat.Get("/staff", r.chatHandler.StaffSessions, r.authMiddleware.RequireRoles(models.RoleICTStaff, models.RoleAdmin))
	chat.Get("/ticket/:ticket_id", r.chatHandler.ActiveSession)
	chat.Get("/ticket/:ticket_id/history", r.chatHandler.History)
	chat.Put("/:id/assign", r.chatHandler.AssignStaff, r.authMiddleware.RequireAdmin())
	chat.Put("/:id/transfer", r.chatHandler.Transfer, r.authMiddleware.RequireAdmin())
	chat.Put("/:id/end", r.chatHandler.End)
	chat.Post("/:id/messages", r.messageHandler.SendToSession)
	chat.Get("/:id/messages", r.messageHandler.ListSession)

	// Ticket-scoped messages and unread counters
	tickets := authed.Group("/tickets")
	tickets.Post("/:id/messages", r.messageHandler.SendToTicket)
	tickets.Get("/:id/messages", r.messageHandler.ListTicket)
	tickets.Get("/:id/messages/unread", r.messageHandler.UnreadCount)

	messages := authed.Group("/messages")
	messages.Get("/unread", r.messageHandler.TotalUnread)
	messages.Put("/:id/read", r.messageHandler.MarkRead)
	messages.Delete("/:id", r.messageHandler.Delete)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.allowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Structured request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health" || c.Path() == "/metrics"
		},
	}))

	// Prometheus request metrics
	r.app.Use(middleware.Metrics())

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "kusanagi-helpdesk-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
