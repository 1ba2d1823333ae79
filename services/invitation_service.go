package services

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"attendance-bot-server/models"
	"attendance-bot-server/utils"

	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

const defaultInviteDays = 7

// InvitationService owns the invitation state machine: creation, lazy
// expiration, one-time conversion into an employee, and administrative
// management.
type InvitationService struct {
	db *gorm.DB
}

func NewInvitationService(db *gorm.DB) *InvitationService {
	return &InvitationService{db: db}
}

func newInviteToken(n int) string {
	return utils.GenerateShortToken(n)
}

// InviteLink builds the bot deep link an invitee opens to claim a token.
func InviteLink(token string) string {
	bot := os.Getenv("BOT_USERNAME")
	if bot == "" {
		bot = "attendance_bot"
	}
	return fmt.Sprintf("https://t.me/%s?start=invite_%s", bot, token)
}

type InvitationPayload struct {
	FirstName   string
	LastName    string
	Department  string
	Position    string
	Email       string
	PhoneNumber string
}

type CreatedInvitation struct {
	Invitation *models.Invitation `json:"invitation"`
	Link       string             `json:"link"`
}

// Create registers a new pending invitation. expiresInDays <= -1 is an input
// error; 0 means the default 7-day window.
func (s *InvitationService) Create(payload InvitationPayload, invitedBy string, expiresInDays int) (*CreatedInvitation, error) {
	if strings.TrimSpace(payload.FirstName) == "" {
		return nil, &ValidationError{Message: "firstName is required"}
	}
	if expiresInDays < 0 {
		return nil, &ValidationError{Message: "expiresInDays must be positive"}
	}
	if expiresInDays == 0 {
		expiresInDays = defaultInviteDays
	}

	token := newInviteToken(24)
	if token == "" {
		return nil, &StoreError{Err: errors.New("could not generate invitation token")}
	}

	phone := payload.PhoneNumber
	if phone != "" {
		phone = utils.NormalizePhoneNumber(phone)
	}

	now := time.Now()
	invitation := models.Invitation{
		Token:       &token,
		FirstName:   strings.TrimSpace(payload.FirstName),
		LastName:    strings.TrimSpace(payload.LastName),
		Department:  payload.Department,
		Position:    payload.Position,
		Email:       strings.ToLower(strings.TrimSpace(payload.Email)),
		PhoneNumber: phone,
		InvitedBy:   invitedBy,
		InvitedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, expiresInDays),
		Status:      models.InvitationPending,
	}
	// the unique index on token is the authoritative collision guard
	if err := s.db.Create(&invitation).Error; err != nil {
		return nil, &StoreError{Err: err}
	}

	return &CreatedInvitation{Invitation: &invitation, Link: InviteLink(token)}, nil
}

// find loads a row by token without touching its state.
func (s *InvitationService) find(tx *gorm.DB, token string) (*models.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &ValidationError{Message: "token is required"}
	}
	var invitation models.Invitation
	if err := tx.Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Err: err}
	}
	return &invitation, nil
}

// Resolve looks an invitation up by token for display or acceptance. A
// pending invitation past its deadline is flipped to expired as a side effect
// of the read.
func (s *InvitationService) Resolve(token string) (*models.Invitation, error) {
	return s.resolve(s.db, token)
}

func (s *InvitationService) resolve(tx *gorm.DB, token string) (*models.Invitation, error) {
	invitation, err := s.find(tx, token)
	if err != nil {
		return nil, err
	}

	switch invitation.Status {
	case models.InvitationAccepted:
		var employee *models.Employee
		if invitation.EmployeeID != nil {
			var e models.Employee
			if lookupErr := tx.First(&e, *invitation.EmployeeID).Error; lookupErr == nil {
				employee = &e
			}
		}
		return invitation, &AlreadyAcceptedError{Employee: employee}
	case models.InvitationCancelled:
		return invitation, ErrCancelled
	case models.InvitationExpired:
		return invitation, &ExpiredError{}
	}

	if time.Now().After(invitation.ExpiresAt) {
		// lazy expiration: the read itself performs the transition
		if err := tx.Model(invitation).Update("status", models.InvitationExpired).Error; err != nil {
			return nil, &StoreError{Err: err}
		}
		return invitation, &ExpiredError{JustExpired: true}
	}

	return invitation, nil
}

// AcceptOverrides are the invitee-supplied fields allowed to differ from the
// invitation payload. Identity fields (name, department, position) stay
// administrator-controlled.
type AcceptOverrides struct {
	TelegramUsername string
	PhoneNumber      string
}

// Accept converts a pending, unexpired invitation into an employee record.
// Re-validation runs before the transaction so a lazy pending->expired write
// survives a failed accept. Employee creation and the invitation update run
// in one transaction; a concurrent accept on the same token loses on the
// conditional status write and the whole transaction rolls back.
func (s *InvitationService) Accept(token, telegramID string, overrides AcceptOverrides) (*models.Employee, error) {
	if strings.TrimSpace(telegramID) == "" {
		return nil, &ValidationError{Message: "telegramID is required"}
	}

	invitation, err := s.resolve(s.db, token)
	if err != nil {
		return nil, err
	}

	var employee *models.Employee
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Employee
		existsErr := tx.Where("telegram_id = ?", telegramID).First(&existing).Error
		if existsErr == nil {
			return &ConflictError{Message: "an employee already exists for this telegram account"}
		}
		if !errors.Is(existsErr, gorm.ErrRecordNotFound) {
			return &StoreError{Err: existsErr}
		}

		phone := invitation.PhoneNumber
		if overrides.PhoneNumber != "" {
			phone = utils.NormalizePhoneNumber(overrides.PhoneNumber)
		}

		active := true
		created := models.Employee{
			TelegramID:       telegramID,
			TelegramUsername: overrides.TelegramUsername,
			FirstName:        invitation.FirstName,
			LastName:         invitation.LastName,
			Department:       invitation.Department,
			Position:         invitation.Position,
			Email:            invitation.Email,
			PhoneNumber:      phone,
			InvitationID:     &invitation.ID,
			IsActive:         &active,
		}
		if err := tx.Create(&created).Error; err != nil {
			return &StoreError{Err: err}
		}

		now := time.Now()
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Updates(map[string]interface{}{
				"status":      models.InvitationAccepted,
				"accepted_at": &now,
				"employee_id": created.ID,
			})
		if res.Error != nil {
			return &StoreError{Err: res.Error}
		}
		if res.RowsAffected == 0 {
			// another accept won the race; rolling back undoes the employee insert
			return &ConflictError{Message: "invitation is no longer valid"}
		}

		employee = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return employee, nil
}

// Cancel voids an invitation. Accepted invitations can never be cancelled.
func (s *InvitationService) Cancel(token string) (*models.Invitation, error) {
	invitation, err := s.find(s.db, token)
	if err != nil {
		return nil, err
	}
	if invitation.Status == models.InvitationAccepted {
		return nil, &ConflictError{Message: "accepted invitations cannot be cancelled"}
	}
	if err := s.db.Model(invitation).Update("status", models.InvitationCancelled).Error; err != nil {
		return nil, &StoreError{Err: err}
	}
	invitation.Status = models.InvitationCancelled
	return invitation, nil
}

// Resend gives a pending invitation a fresh default expiration window. It
// does not touch invitedAt and sends no message; delivery is the bot's job.
func (s *InvitationService) Resend(token string) (*models.Invitation, error) {
	return s.extendPending(token, defaultInviteDays)
}

// Extend pushes a pending invitation's deadline to now + days, regardless of
// the previous deadline. 0 means the default window.
func (s *InvitationService) Extend(token string, days int) (*models.Invitation, error) {
	if days < 0 {
		return nil, &ValidationError{Message: "days must be positive"}
	}
	if days == 0 {
		days = defaultInviteDays
	}
	return s.extendPending(token, days)
}

func (s *InvitationService) extendPending(token string, days int) (*models.Invitation, error) {
	invitation, err := s.find(s.db, token)
	if err != nil {
		return nil, err
	}
	switch invitation.Status {
	case models.InvitationAccepted:
		return nil, &AlreadyAcceptedError{}
	case models.InvitationCancelled:
		return nil, ErrCancelled
	case models.InvitationExpired:
		return nil, &ExpiredError{}
	}

	expiresAt := time.Now().AddDate(0, 0, days)
	if err := s.db.Model(invitation).Update("expires_at", expiresAt).Error; err != nil {
		return nil, &StoreError{Err: err}
	}
	invitation.ExpiresAt = expiresAt
	return invitation, nil
}

// BulkDelete removes the matched invitations, all or nothing: a missing token
// or an accepted invitation anywhere in the set fails the whole call.
func (s *InvitationService) BulkDelete(tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, &ValidationError{Message: "tokens are required"}
	}
	unique := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" && !slices.Contains(unique, t) {
			unique = append(unique, t)
		}
	}
	if len(unique) == 0 {
		return 0, &ValidationError{Message: "tokens are required"}
	}

	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invitations []models.Invitation
		if err := tx.Where("token IN ?", unique).Find(&invitations).Error; err != nil {
			return &StoreError{Err: err}
		}
		if len(invitations) != len(unique) {
			return ErrNotFound
		}
		for i := range invitations {
			if invitations[i].Status == models.InvitationAccepted {
				return &ConflictError{Message: "accepted invitations cannot be deleted"}
			}
		}

		res := tx.Where("token IN ?", unique).Delete(&models.Invitation{})
		if res.Error != nil {
			return &StoreError{Err: res.Error}
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

type ListFilter struct {
	Status    string
	InvitedBy string
	Page      int
	Limit     int
}

type InvitationPage struct {
	Invitations []models.Invitation `json:"invitations"`
	Total       int64               `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
	Pages       int                 `json:"pages"`
}

// List returns a page of invitations ordered by invitedAt descending.
func (s *InvitationService) List(filter ListFilter) (*InvitationPage, error) {
	page := filter.Page
	limit := filter.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 50
	}
	if page < 0 || limit < 0 {
		return nil, &ValidationError{Message: "page and limit must be positive"}
	}
	if filter.Status != "" && !slices.Contains(models.InvitationStatuses, filter.Status) {
		return nil, &ValidationError{Message: "unknown status filter"}
	}

	query := s.db.Model(&models.Invitation{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.InvitedBy != "" {
		query = query.Where("invited_by = ?", filter.InvitedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, &StoreError{Err: err}
	}

	var invitations []models.Invitation
	if err := query.Order("invited_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&invitations).Error; err != nil {
		return nil, &StoreError{Err: err}
	}

	return &InvitationPage{
		Invitations: invitations,
		Total:       total,
		Page:        page,
		Limit:       limit,
		Pages:       int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}
