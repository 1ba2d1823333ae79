package routes

import (
	"attendance-bot-server/models"
	"attendance-bot-server/storage"
	"attendance-bot-server/utils"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/kataras/iris/v12"
	"golang.org/x/crypto/bcrypt"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

type RegisterAdminInput struct {
	FirstName string `json:"firstName" validate:"required,max=256"`
	LastName  string `json:"lastName" validate:"required,max=256"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=256"`
}

type LoginAdminInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleAdminInput struct {
	IdentityToken string `json:"identityToken" validate:"required"`
}

func getAndHandleAdminExists(admin *models.AdminUser, email string) (bool, error) {
	adminExistsQuery := storage.DB.Where("email = ?", strings.ToLower(email)).Limit(1).Find(&admin)

	if adminExistsQuery.Error != nil {
		return false, adminExistsQuery.Error
	}

	return adminExistsQuery.RowsAffected > 0, nil
}

func hashAndSaltPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func returnAdmin(admin models.AdminUser, ctx iris.Context) {
	tokenPair, tokenErr := utils.CreateTokenPair(admin.ID)
	if tokenErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"ID":           admin.ID,
		"firstName":    admin.FirstName,
		"lastName":     admin.LastName,
		"email":        admin.Email,
		"role":         admin.Role,
		"accessToken":  string(tokenPair.AccessToken),
		"refreshToken": string(tokenPair.RefreshToken),
	})
}

// RegisterAdmin creates a dashboard admin account. The first account becomes
// super_admin; later ones default to admin.
func RegisterAdmin(ctx iris.Context) {
	var input RegisterAdminInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var newAdmin models.AdminUser
	adminExists, adminExistsErr := getAndHandleAdminExists(&newAdmin, input.Email)
	if adminExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if adminExists {
		utils.CreateError(iris.StatusConflict, "Conflict", "email already registered", ctx)
		return
	}

	hashedPassword, hashErr := hashAndSaltPassword(input.Password)
	if hashErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	role := "admin"
	var total int64
	storage.DB.Model(&models.AdminUser{}).Count(&total)
	if total == 0 {
		role = "super_admin"
	}

	newAdmin = models.AdminUser{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     strings.ToLower(input.Email),
		Password:  hashedPassword,
		Role:      role,
	}

	if err := storage.DB.Create(&newAdmin).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	returnAdmin(newAdmin, ctx)
}

func LoginAdmin(ctx iris.Context) {
	var input LoginAdminInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var existingAdmin models.AdminUser
	errorMsg := "Invalid email or password."
	adminExists, adminExistsErr := getAndHandleAdminExists(&existingAdmin, input.Email)
	if adminExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !adminExists {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	if existingAdmin.SocialLogin {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", "Social Login Account", ctx)
		return
	}

	passwordErr := bcrypt.CompareHashAndPassword([]byte(existingAdmin.Password), []byte(input.Password))
	if passwordErr != nil {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", errorMsg, ctx)
		return
	}

	returnAdmin(existingAdmin, ctx)
}

// GoogleLoginAdmin signs a dashboard admin in with a Google ID token. The
// token signature is checked against Google's published JWKS.
func GoogleLoginAdmin(ctx iris.Context) {
	var input GoogleAdminInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	res, httpErr := http.Get(googleJWKSURL)
	if httpErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	defer res.Body.Close()

	body, bodyErr := io.ReadAll(res.Body)
	if bodyErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	jwks, jwksErr := keyfunc.NewJSON(body)
	if jwksErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	token, tokenErr := jwt.Parse(input.IdentityToken, jwks.Keyfunc)
	if tokenErr != nil || !token.Valid {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Invalid identity token.", ctx)
		return
	}

	claims := token.Claims.(jwt.MapClaims)
	email := fmt.Sprint(claims["email"])
	if email == "" || email == "<nil>" {
		utils.CreateError(iris.StatusUnauthorized, "Unauthorized", "Identity token carries no email.", ctx)
		return
	}

	var admin models.AdminUser
	adminExists, adminExistsErr := getAndHandleAdminExists(&admin, email)
	if adminExistsErr != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if !adminExists {
		// Dashboard accounts are provisioned, never self-created via Google.
		utils.CreateError(iris.StatusForbidden, "Forbidden", "No admin account for this email.", ctx)
		return
	}

	if !admin.SocialLogin || admin.SocialProvider != "Google" {
		utils.CreateError(iris.StatusUnauthorized, "Credentials Error", "Password Login Account", ctx)
		return
	}

	returnAdmin(admin, ctx)
}
