package routes

import (
	"attendance-bot-server/models"
	"attendance-bot-server/storage"
	"attendance-bot-server/utils"
	"net/http"
	"strings"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
)

var employeeSortColumns = []string{"created_at", "first_name", "last_name", "department"}

// AdminListEmployees - GET /admin/employees?department=&q=&sort=&page=&per_page=
func AdminListEmployees(ctx iris.Context) {
	// Basic pagination
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 25)
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	var employees []models.Employee
	q := strings.TrimSpace(ctx.URLParamDefault("q", ""))
	department := strings.TrimSpace(ctx.URLParamDefault("department", ""))
	sort := ctx.URLParamDefault("sort", "created_at")
	if !slices.Contains(employeeSortColumns, sort) {
		sort = "created_at"
	}

	query := storage.DB.Model(&models.Employee{})
	if department != "" {
		query = query.Where("department = ?", department)
	}
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(email) LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)
	query = query.Order(sort + " DESC").Offset((page - 1) * perPage).Limit(perPage)
	if err := query.Find(&employees).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))
	utils.JSONPage(ctx, employees, page, perPage, pages, total)
}

// AdminGetEmployee - GET /admin/employees/:id with recent attendance
func AdminGetEmployee(ctx iris.Context) {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	var employee models.Employee
	if err := storage.DB.First(&employee, id).Error; err != nil {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "employee not found")
		return
	}

	var records []models.AttendanceRecord
	storage.DB.Where("employee_id = ?", id).Order("created_at DESC").Limit(50).Find(&records)

	ctx.JSON(iris.Map{
		"data": iris.Map{
			"employee":         employee,
			"recentAttendance": records,
		},
		"meta":  iris.Map{},
		"links": iris.Map{},
	})
}
