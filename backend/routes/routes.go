package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/controllers"
	_ "github.com/aimastery/academy/backend/docs"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/middleware"
	"github.com/aimastery/academy/backend/services/email"
	"github.com/aimastery/academy/backend/services/payments"
	"github.com/aimastery/academy/backend/services/tts"
	"github.com/aimastery/academy/backend/utils"
)

// Dependencies are the collaborators shared by every controller.
type Dependencies struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Logger   *log.Logger
	Reporter logging.Logger
	Mailer   email.Sender
	// Payments is nil when no payment provider is configured.
	Payments payments.Gateway
	Speech   tts.Synthesizer
	// LimiterStorage is nil for the in-process limiter store.
	LimiterStorage fiber.Storage
}

// ErrorHandler renders every error returned by a handler in the JSON envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return utils.Fail(c, err)
}

// NewApp builds the fiber application with middleware and all routes.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      deps.Cfg.AppName,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: !deps.Cfg.IsProduction()}))
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(deps.Logger, deps.Reporter))

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	db, cfg := deps.DB, deps.Cfg

	app.Get("/health", func(c *fiber.Ctx) error {
		return utils.OK(c, fiber.Map{"status": "ok"})
	})
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := app.Group("/api")

	// Middleware
	authMiddleware := middleware.AuthMiddleware(db, cfg)
	adminMiddleware := middleware.AdminMiddleware()
	authLimiter := middleware.RateLimiter("auth", cfg.RateLimitMax, cfg.RateLimitWindow, middleware.ByIP, deps.LimiterStorage)
	writeLimiter := middleware.RateLimiter("community", cfg.RateLimitMax, cfg.RateLimitWindow, middleware.ByUser, deps.LimiterStorage)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg, deps.Mailer, deps.Reporter)
	api.Post("/auth/register", authLimiter, authController.Register)
	api.Post("/auth/login", authLimiter, authController.Login)

	// Public routes
	paymentsController := controllers.NewPaymentsController(db, cfg, deps.Payments, deps.Mailer, deps.Reporter)
	achievementsController := controllers.NewAchievementsController(db, cfg)
	api.Get("/promo", paymentsController.GetPromo)
	api.Post("/webhooks/stripe", paymentsController.StripeWebhook)
	api.Get("/certificates/verify/:code", achievementsController.VerifyCertificate)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	user := api.Group("/user", authMiddleware)
	user.Get("/profile", userController.GetProfile)
	user.Put("/profile", userController.UpdateProfile)
	user.Put("/password", userController.ChangePassword)
	user.Get("/activity", userController.GetUserActivity)
	user.Get("/badges", achievementsController.MyBadges)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg, deps.Mailer, deps.Reporter)
	courses := api.Group("/courses", authMiddleware)
	courses.Get("/", coursesController.ListCourses)
	courses.Get("/search", coursesController.SearchCourses)
	courses.Get("/:slug", coursesController.GetCourse)
	courses.Post("/:slug/certificate", coursesController.RequestCertificate)

	// Lessons and progress routes
	lessonsController := controllers.NewLessonsController(db, cfg, deps.Speech, deps.Reporter)
	progressController := controllers.NewProgressController(db, cfg, deps.Mailer, deps.Reporter)
	lessons := api.Group("/lessons", authMiddleware)
	lessons.Get("/:id", lessonsController.GetLesson)
	lessons.Post("/:id/audio", lessonsController.LessonAudio)
	lessons.Post("/:id/complete", progressController.CompleteLesson)
	lessons.Delete("/:id/complete", progressController.UncompleteLesson)
	api.Get("/progress", authMiddleware, progressController.GetProgress)

	overviewController := controllers.NewOverviewController(db, cfg)
	api.Get("/dashboard", authMiddleware, overviewController.GetDashboard)

	// Quiz routes
	quizController := controllers.NewQuizController(db, cfg, deps.Reporter)
	quizzes := api.Group("/quizzes", authMiddleware)
	quizzes.Get("/:id", quizController.GetQuiz)
	quizzes.Get("/:id/attempts", quizController.ListAttempts)
	quizzes.Post("/:id/attempts", quizController.SubmitAttempt)

	// Achievements
	api.Get("/badges", authMiddleware, achievementsController.ListBadges)
	api.Get("/certificates", authMiddleware, achievementsController.MyCertificates)

	// Payments
	api.Post("/checkout", authMiddleware, paymentsController.Checkout)
	api.Get("/payments", authMiddleware, paymentsController.ListPayments)

	// Community routes
	communityController := controllers.NewCommunityController(db, cfg, deps.Reporter)
	community := api.Group("/community", authMiddleware)
	community.Get("/posts", communityController.ListPosts)
	community.Get("/posts/:id", communityController.GetPost)
	community.Post("/posts", writeLimiter, communityController.CreatePost)
	community.Post("/posts/:id/replies", writeLimiter, communityController.CreateReply)
	community.Delete("/posts/:id", communityController.DeletePost)
	community.Delete("/replies/:id", communityController.DeleteReply)

	// Admin routes
	adminController := controllers.NewAdminController(db, cfg)
	analyticsController := controllers.NewAnalyticsController(db, cfg)
	admin := api.Group("/admin", authMiddleware, adminMiddleware)
	admin.Get("/analytics", analyticsController.GetPlatformAnalytics)
	admin.Get("/courses", adminController.ListCourses)
	admin.Post("/courses", adminController.CreateCourse)
	admin.Put("/courses/:id", adminController.UpdateCourse)
	admin.Delete("/courses/:id", adminController.DeleteCourse)
	admin.Post("/courses/:id/modules", adminController.CreateModule)
	admin.Put("/modules/:id", adminController.UpdateModule)
	admin.Delete("/modules/:id", adminController.DeleteModule)
	admin.Post("/modules/:id/lessons", adminController.CreateLesson)
	admin.Put("/lessons/:id", adminController.UpdateLesson)
	admin.Delete("/lessons/:id", adminController.DeleteLesson)
	admin.Post("/lessons/:id/quiz", adminController.CreateQuiz)
	admin.Put("/quizzes/:id", adminController.UpdateQuiz)
	admin.Delete("/quizzes/:id", adminController.DeleteQuiz)
	admin.Post("/quizzes/:id/questions", adminController.CreateQuestion)
	admin.Put("/questions/:id", adminController.UpdateQuestion)
	admin.Delete("/questions/:id", adminController.DeleteQuestion)
	admin.Get("/users", adminController.ListUsers)
	admin.Put("/users/:id/tier", adminController.SetUserTier)
	admin.Get("/payments", adminController.ListPayments)
}
