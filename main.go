package main

import (
	"fmt"
	"log"
	"os"

	"main/handler"
	"main/middleware"
	"main/repository"
	"main/services"
	"main/usecase"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Printf("No .env file loaded: %v", err)
	}

	requiredEnvVars := []string{
		"MONGO_URI",
		"MONGO_DB",
		"USERS_COLLECTION",
		"JWT_SECRET_KEY",
		"SMTP_SERVER",
		"FRONTEND_URL",
		"PORT",
	}

	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" && os.Getenv("GO_ENV") != "test" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	utils.InitValidator()
	utils.InitJWT()

	if os.Getenv("GO_ENV") != "test" {
		utils.InitMongoClient()
	}
}

func setupRouter(deps *handler.AuthDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestSizeLimiter(1 << 20))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", handler.StatsHandler)

	// Public routes (no authentication required)
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", func(c *gin.Context) {
			handler.RegistrationHandler(c, deps)
		})
		auth.POST("/verify-otp", func(c *gin.Context) {
			handler.VerifyOTPHandler(c, deps)
		})
		auth.POST("/resend-otp", func(c *gin.Context) {
			handler.ResendOTPHandler(c, deps)
		})
		auth.POST("/resend-2fa", func(c *gin.Context) {
			handler.Resend2FAHandler(c, deps)
		})
		auth.POST("/login", func(c *gin.Context) {
			handler.LoginHandler(c, deps)
		})
		auth.POST("/refresh", func(c *gin.Context) {
			handler.RefreshTokenHandler(c, deps)
		})

		social := auth.Group("/social")
		{
			social.GET("/:provider", func(c *gin.Context) {
				handler.SocialLoginHandler(c, deps)
			})
			social.GET("/:provider/callback", func(c *gin.Context) {
				handler.SocialCallbackHandler(c, deps)
			})
			social.POST("/verify-2fa", func(c *gin.Context) {
				handler.SocialVerify2FAHandler(c, deps)
			})
		}
	}

	// Protected routes (authentication required)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		user := protected.Group("/user")
		{
			user.GET("/profile", func(c *gin.Context) {
				handler.GetProfileHandler(c, deps)
			})
			user.GET("/login-history", func(c *gin.Context) {
				handler.GetLoginHistoryHandler(c, deps)
			})
			user.PUT("/notifications", func(c *gin.Context) {
				handler.UpdateNotificationsHandler(c, deps)
			})
			user.POST("/logout", func(c *gin.Context) {
				handler.LogoutHandler(c, deps)
			})
		}

		twofa := protected.Group("/user/2fa")
		{
			twofa.POST("/enable", func(c *gin.Context) {
				handler.Enable2FAHandler(c, deps)
			})
			twofa.POST("/disable", func(c *gin.Context) {
				handler.Disable2FAHandler(c, deps)
			})
			twofa.GET("/authenticator", func(c *gin.Context) {
				handler.GenerateAuthenticatorHandler(c, deps)
			})
			twofa.POST("/authenticator/verify", func(c *gin.Context) {
				handler.VerifyAuthenticatorHandler(c, deps)
			})
		}
	}

	return router
}

func main() {
	// Refresh-token revocation tracking is optional; without Redis the
	// service still runs, logout just can't invalidate outstanding tokens.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		revocation, err := services.NewTokenRevocation(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		services.TokenRevocation = revocation
	} else {
		log.Println("REDIS_URL not set, token revocation tracking disabled")
	}

	store := services.NewMemoryStore()
	mailer := services.NewSMTPMailer()

	userRepo := repository.GetUserRepo(utils.MongoClient)
	deps := &handler.AuthDeps{
		Users:     &usecase.UserService{Users: userRepo},
		TwoFactor: services.NewTwoFactor(store, mailer),
		Store:     store,
		Mailer:    mailer,
	}

	router := setupRouter(deps)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	serverAddr := fmt.Sprintf(":%s", port)
	log.Printf("Server starting on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
