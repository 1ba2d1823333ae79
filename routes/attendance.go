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
	"gorm.io/gorm"
)

var attendanceSvc *services.AttendanceService

// InitAttendance wires the attendance service built in main. The office
// reference is fixed for the process lifetime.
func InitAttendance(svc *services.AttendanceService) {
	attendanceSvc = svc
}

type AttendancePositionInput struct {
	TelegramID string  `json:"telegramID" validate:"required,max=32"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

func CheckIn(ctx iris.Context) {
	recordAttendance(ctx, models.AttendanceCheckIn)
}

func CheckOut(ctx iris.Context) {
	recordAttendance(ctx, models.AttendanceCheckOut)
}

func recordAttendance(ctx iris.Context, kind string) {
	var input AttendancePositionInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var employee models.Employee
	if err := storage.DB.Where("telegram_id = ?", input.TelegramID).First(&employee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSONError(ctx, http.StatusNotFound, "not_found", "no employee for this telegram account")
			return
		}
		utils.JSONError(ctx, http.StatusInternalServerError, "store_failure", "persistence layer failed")
		return
	}

	record, verdict, err := attendanceSvc.Record(employee.ID, kind, services.Position{
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	})
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{
		"record":  record,
		"verdict": verdict,
		"summary": attendanceSvc.Describe(verdict),
	})
}

// EvaluatePosition is a dry-run check the bot uses before asking the employee
// to confirm; nothing is recorded.
func EvaluatePosition(ctx iris.Context) {
	lat, latErr := strconv.ParseFloat(ctx.URLParam("lat"), 64)
	lng, lngErr := strconv.ParseFloat(ctx.URLParam("lng"), 64)
	if latErr != nil || lngErr != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_coordinates", "lat and lng are required")
		return
	}

	verdict, err := attendanceSvc.Evaluate(services.Position{Latitude: lat, Longitude: lng})
	if err != nil {
		writeEngineError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{"verdict": verdict, "summary": attendanceSvc.Describe(verdict)})
}

// ListEmployeeAttendance returns recent attendance for one employee.
func ListEmployeeAttendance(ctx iris.Context) {
	employeeID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	limit := ctx.URLParamIntDefault("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var records []models.AttendanceRecord
	if err := storage.DB.Where("employee_id = ?", employeeID).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "store_failure", err.Error())
		return
	}

	ctx.JSON(iris.Map{"records": records})
}
