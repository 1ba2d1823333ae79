package routes

import (
	"attendance-bot-server/models"
	"attendance-bot-server/services"
	"attendance-bot-server/storage"
	"attendance-bot-server/utils"
	"errors"
	"net/http"
	"strconv"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
)

// writeEngineError maps invitation/attendance service errors onto HTTP status
// codes: validation 400, not found 404, expired/cancelled 410, accepted and
// other conflicts 409, store failures 500.
func writeEngineError(ctx iris.Context, err error) {
	var validationErr *services.ValidationError
	var expiredErr *services.ExpiredError
	var acceptedErr *services.AlreadyAcceptedError
	var conflictErr *services.ConflictError
	var storeErr *services.StoreError

	switch {
	case errors.As(err, &validationErr):
		utils.JSONError(ctx, http.StatusBadRequest, "validation_error", validationErr.Message)
	case errors.Is(err, services.ErrNotFound):
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "invitation not found")
	case errors.As(err, &expiredErr):
		ctx.StatusCode(http.StatusGone)
		ctx.JSON(iris.Map{"error": "expired", "message": "invitation has expired", "justExpired": expiredErr.JustExpired})
	case errors.Is(err, services.ErrCancelled):
		utils.JSONError(ctx, http.StatusGone, "cancelled", "invitation was cancelled")
	case errors.As(err, &acceptedErr):
		ctx.StatusCode(http.StatusConflict)
		ctx.JSON(iris.Map{"error": "already_accepted", "message": "invitation was already accepted", "employee": acceptedErr.Employee})
	case errors.As(err, &conflictErr):
		utils.JSONError(ctx, http.StatusConflict, "conflict", conflictErr.Message)
	case errors.Is(err, services.ErrInvalidCoordinates):
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_coordinates", "latitude or longitude out of range")
	case errors.As(err, &storeErr):
		utils.JSONError(ctx, http.StatusInternalServerError, "store_failure", "persistence layer failed")
	default:
		utils.CreateInternalServerError(ctx)
	}
}

func invitedByFromToken(ctx iris.Context) string {
	claims := jsonWT.Get(ctx).(*utils.AccessToken)
	return strconv.FormatUint(uint64(claims.ID), 10)
}

type CreateInvitationInput struct {
	FirstName     string `json:"firstName" validate:"required,max=64"`
	LastName      string `json:"lastName" validate:"max=64"`
	Department    string `json:"department" validate:"max=64"`
	Position      string `json:"position" validate:"max=64"`
	Email         string `json:"email" validate:"omitempty,email"`
	PhoneNumber   string `json:"phoneNumber" validate:"max=20"`
	ExpiresInDays int    `json:"expiresInDays" validate:"omitempty,min=1,max=365"`
}

func CreateInvitation(ctx iris.Context) {
	var input CreateInvitationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	created, err := services.NewInvitationService(storage.DB).Create(services.InvitationPayload{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Department:  input.Department,
		Position:    input.Position,
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
	}, invitedByFromToken(ctx), input.ExpiresInDays)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	utils.Audit(ctx, models.AuditInvitationCreate, "invitation", created.Invitation.ID, nil, created.Invitation)
	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"invitation": created.Invitation, "link": created.Link})
}

func ListInvitations(ctx iris.Context) {
	filter := services.ListFilter{
		Status:    ctx.URLParamDefault("status", ""),
		InvitedBy: ctx.URLParamDefault("invitedBy", ""),
		Page:      ctx.URLParamIntDefault("page", 0),
		Limit:     ctx.URLParamIntDefault("limit", 0),
	}

	page, err := services.NewInvitationService(storage.DB).List(filter)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	utils.JSONPage(ctx, page.Invitations, page.Page, page.Limit, page.Pages, page.Total)
}

// ResolveInvitation is the public token lookup the bot performs when an
// invitee opens a deep link.
func ResolveInvitation(ctx iris.Context) {
	token := ctx.Params().Get("token")

	invitation, err := services.NewInvitationService(storage.DB).Resolve(token)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{"invitation": invitation})
}

type AcceptInvitationInput struct {
	TelegramID       string `json:"telegramID" validate:"required,max=32"`
	TelegramUsername string `json:"telegramUsername" validate:"max=64"`
	PhoneNumber      string `json:"phoneNumber" validate:"max=20"`
}

func AcceptInvitation(ctx iris.Context) {
	token := ctx.Params().Get("token")

	var input AcceptInvitationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	employee, err := services.NewInvitationService(storage.DB).Accept(token, input.TelegramID, services.AcceptOverrides{
		TelegramUsername: input.TelegramUsername,
		PhoneNumber:      input.PhoneNumber,
	})
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"employee": employee})
}

func CancelInvitation(ctx iris.Context) {
	token := ctx.Params().Get("token")

	invitation, err := services.NewInvitationService(storage.DB).Cancel(token)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	utils.Audit(ctx, models.AuditInvitationCancel, "invitation", invitation.ID, nil, invitation)
	ctx.JSON(iris.Map{"invitation": invitation})
}

func ResendInvitation(ctx iris.Context) {
	token := ctx.Params().Get("token")

	invitation, err := services.NewInvitationService(storage.DB).Resend(token)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	utils.Audit(ctx, models.AuditInvitationResend, "invitation", invitation.ID, nil, invitation)
	ctx.JSON(iris.Map{"invitation": invitation, "link": services.InviteLink(*invitation.Token)})
}

type ExtendInvitationInput struct {
	Days int `json:"days" validate:"omitempty,min=1,max=365"`
}

func ExtendInvitation(ctx iris.Context) {
	token := ctx.Params().Get("token")

	var input ExtendInvitationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	invitation, err := services.NewInvitationService(storage.DB).Extend(token, input.Days)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	utils.Audit(ctx, models.AuditInvitationExtend, "invitation", invitation.ID, nil, invitation)
	ctx.JSON(iris.Map{"invitation": invitation})
}

type BulkDeleteInvitationsInput struct {
	Tokens []string `json:"tokens" validate:"required,min=1,dive,required"`
}

func BulkDeleteInvitations(ctx iris.Context) {
	var input BulkDeleteInvitationsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	deleted, err := services.NewInvitationService(storage.DB).BulkDelete(input.Tokens)
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	utils.Audit(ctx, models.AuditInvitationBulkDelete, "invitation", 0, input.Tokens, nil)
	ctx.JSON(iris.Map{"deleted": deleted})
}
