package main

import (
	"attendance-bot-server/routes"
	"attendance-bot-server/services"
	"attendance-bot-server/storage"
	"attendance-bot-server/utils"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()

	routes.InitAttendance(services.NewAttendanceService(storage.DB, services.LoadOfficeConfig()))

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the admin dashboard (http://localhost:3000)
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Bot-Token")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	auth := app.Party("/api/auth")
	{
		auth.Post("/register", routes.RegisterAdmin)
		auth.Post("/login", routes.LoginAdmin)
		auth.Post("/google", routes.GoogleLoginAdmin)
	}

	// Public token endpoints used by the bot on behalf of invitees
	invitation := app.Party("/api/invitation", utils.BotAuthMiddleware)
	{
		invitation.Get("/{token:string}", routes.ResolveInvitation)
		invitation.Post("/{token:string}/accept", routes.AcceptInvitation)
	}

	attendance := app.Party("/api/attendance", utils.BotAuthMiddleware)
	{
		attendance.Get("/evaluate", routes.EvaluatePosition)
		attendance.Post("/check-in", routes.CheckIn)
		attendance.Post("/check-out", routes.CheckOut)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Post("/invitations", routes.CreateInvitation)
		admin.Get("/invitations", routes.ListInvitations)
		admin.Post("/invitations/bulk-delete", utils.SuperAdminOnlyMiddleware, routes.BulkDeleteInvitations)
		admin.Post("/invitations/{token:string}/cancel", routes.CancelInvitation)
		admin.Post("/invitations/{token:string}/resend", routes.ResendInvitation)
		admin.Post("/invitations/{token:string}/extend", routes.ExtendInvitation)
		admin.Get("/employees", routes.AdminListEmployees)
		admin.Get("/employees/{id:uint}", routes.AdminGetEmployee)
		admin.Get("/employees/{id:uint}/attendance", routes.ListEmployeeAttendance)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
