package utils

import (
	"os"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// AdminOnlyMiddleware ensures the requester has admin or super_admin role
func AdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	role := claims.Role
	if role != "admin" && role != "super_admin" {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"error": "forbidden", "message": "admin access required"})
		return
	}
	ctx.Next()
}

// SuperAdminOnlyMiddleware restricts destructive operations (bulk delete,
// admin management) to super_admin.
func SuperAdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*AccessToken)
	if claims.Role != "super_admin" {
		ctx.StatusCode(iris.StatusForbidden)
		ctx.JSON(iris.Map{"error": "forbidden", "message": "super admin access required"})
		return
	}
	ctx.Next()
}

// BotAuthMiddleware guards the endpoints called by the telegram bot with a
// shared secret header.
func BotAuthMiddleware(ctx iris.Context) {
	secret := os.Getenv("BOT_API_SECRET")
	if secret == "" || ctx.GetHeader("X-Bot-Token") != secret {
		ctx.StopWithJSON(iris.StatusUnauthorized, iris.Map{"error": "unauthorized", "message": "bot token required"})
		return
	}
	ctx.Next()
}
